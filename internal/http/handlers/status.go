package handlers

import "net/http"

type statusResponse struct {
	Success bool            `json:"success"`
	Agents  map[string]bool `json:"agents"`
	Image   bool            `json:"imageModel"`
	Removal removalStatus   `json:"backgroundRemoval"`
}

type removalStatus struct {
	Reachable      bool `json:"reachable"`
	QuotaAvailable int  `json:"quotaAvailable,omitempty"`
	QuotaTotal     int  `json:"quotaTotal,omitempty"`
}

// Status reports which capabilities are configured and whether the removal
// service is reachable, with its remaining quota.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	removal := removalStatus{}
	if a.Removal != nil && a.Removal.TestConnection(r.Context()) {
		removal.Reachable = true
		if quota, err := a.Removal.RemainingQuota(r.Context()); err == nil {
			removal.QuotaAvailable = quota.Available
			removal.QuotaTotal = quota.Total
		}
	}

	a.json(w, http.StatusOK, statusResponse{
		Success: true,
		Agents:  a.Capabilities,
		Image:   a.ImageConfigured,
		Removal: removal,
	})
}
