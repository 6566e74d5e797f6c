package content

import (
	"sort"
	"strings"
)

// EmojiMatch pairs an emoji with the descriptive keyword used in prompts.
type EmojiMatch struct {
	Emoji   string
	Keyword string
}

// EmojiResult reports whether a description is asking for an emoji-style icon.
type EmojiResult struct {
	IsEmoji    bool
	Selected   *EmojiMatch
	Confidence float64
	Explicit   bool
}

// genericEmoji is used when the request says "emoji" without naming one.
var genericEmoji = EmojiMatch{Emoji: "🎨", Keyword: "creative design"}

var emojiMap = map[string]EmojiMatch{
	// faces and emotions
	"smile":     {"😊", "happy smile"},
	"happy":     {"😊", "happy smile"},
	"sad":       {"😢", "sad crying"},
	"cry":       {"😢", "crying tears"},
	"laugh":     {"😂", "laughing tears"},
	"angry":     {"😠", "angry mad"},
	"love":      {"😍", "heart eyes love"},
	"wink":      {"😉", "winking playful"},
	"surprised": {"😲", "surprised shocked"},
	"cool":      {"😎", "cool sunglasses"},

	// animals
	"cat":      {"🐱", "cat feline"},
	"dog":      {"🐶", "dog puppy"},
	"bird":     {"🐦", "bird flying"},
	"fish":     {"🐟", "fish swimming"},
	"lion":     {"🦁", "lion king"},
	"elephant": {"🐘", "elephant big"},
	"monkey":   {"🐵", "monkey playful"},
	"bear":     {"🐻", "bear cute"},
	"fox":      {"🦊", "fox clever"},
	"rabbit":   {"🐰", "rabbit bunny"},

	// objects and symbols
	"heart":  {"❤️", "red heart love"},
	"star":   {"⭐", "golden star"},
	"fire":   {"🔥", "fire flame"},
	"music":  {"🎵", "music note"},
	"car":    {"🚗", "car vehicle"},
	"house":  {"🏠", "house home"},
	"tree":   {"🌳", "green tree"},
	"flower": {"🌸", "cherry blossom"},
	"sun":    {"☀️", "bright sun"},
	"moon":   {"🌙", "crescent moon"},

	// food
	"pizza":     {"🍕", "pizza slice"},
	"burger":    {"🍔", "hamburger"},
	"coffee":    {"☕", "coffee cup"},
	"cake":      {"🍰", "birthday cake"},
	"ice cream": {"🍦", "ice cream cone"},

	// activities
	"ball":       {"⚽", "soccer ball"},
	"basketball": {"🏀", "basketball"},
	"gaming":     {"🎮", "game controller"},

	// weather
	"rain":      {"🌧️", "rain drops"},
	"snow":      {"❄️", "snowflake"},
	"cloud":     {"☁️", "white cloud"},
	"lightning": {"⚡", "lightning bolt"},

	// technology
	"phone":    {"📱", "mobile phone"},
	"computer": {"💻", "laptop computer"},
	"camera":   {"📷", "camera photo"},
	"rocket":   {"🚀", "rocket space"},
}

// emojiKeywords holds the map keys in deterministic order so ties between
// equally long keywords resolve the same way on every call.
var emojiKeywords = func() []string {
	keys := make([]string, 0, len(emojiMap))
	for k := range emojiMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}()

// DetectEmojiRequest decides whether the description asks for an emoji-style
// icon. Confidence is the matched keyword's share of the description length;
// the longest matching keyword wins.
func DetectEmojiRequest(text string) EmojiResult {
	lower := strings.ToLower(text)
	explicit := strings.Contains(lower, "emoji") || strings.Contains(lower, "emoticon")

	var selected *EmojiMatch
	confidence := 0.0
	for _, keyword := range emojiKeywords {
		if !strings.Contains(lower, keyword) {
			continue
		}
		c := float64(len(keyword)) / float64(len(lower))
		if c > confidence {
			confidence = c
			m := emojiMap[keyword]
			selected = &m
		}
	}

	if explicit && selected == nil {
		g := genericEmoji
		selected = &g
		confidence = 0.5
	}

	return EmojiResult{
		IsEmoji:    explicit || selected != nil,
		Selected:   selected,
		Confidence: confidence,
		Explicit:   explicit,
	}
}

var (
	styleColorWords  = []string{"red", "blue", "green", "yellow", "purple", "pink", "orange", "black", "white", "gold", "silver", "rainbow", "colorful", "bright", "dark", "neon", "pastel"}
	styleStyleWords  = []string{"3d", "flat", "minimal", "detailed", "cartoon", "realistic", "abstract", "vintage", "modern", "futuristic", "cute", "professional", "playful", "elegant", "bold"}
	styleEffectWords = []string{"glowing", "shiny", "metallic", "transparent", "gradient", "shadow", "reflection", "animated", "sparkling", "textured", "smooth", "glossy", "matte"}
)

func matchWords(lower string, words []string) []string {
	var out []string
	for _, w := range words {
		if strings.Contains(lower, w) {
			out = append(out, w)
		}
	}
	return out
}

// BuildEmojiPrompt turns a detected emoji request into a synthesis prompt,
// folding in any color, style, and effect words from the original text.
func BuildEmojiPrompt(result EmojiResult, original string) string {
	if result.Selected == nil {
		return "3D animated icon inspired by emojis, " + original +
			", colorful, expressive, clean design, professional quality, isolated on transparent background"
	}

	lower := strings.ToLower(original)
	var b strings.Builder
	b.WriteString("3D animated ")
	b.WriteString(result.Selected.Keyword)
	b.WriteString(" emoji")

	if colors := matchWords(lower, styleColorWords); len(colors) > 0 {
		b.WriteString(" in ")
		b.WriteString(strings.Join(colors, " and "))
		b.WriteString(" colors")
	}
	if styles := matchWords(lower, styleStyleWords); len(styles) > 0 {
		b.WriteString(" with ")
		b.WriteString(strings.Join(styles, ", "))
		b.WriteString(" style")
	}
	if effects := matchWords(lower, styleEffectWords); len(effects) > 0 {
		b.WriteString(" featuring ")
		b.WriteString(strings.Join(effects, ", "))
	}

	b.WriteString(", high-quality 3D render, smooth gradients, professional emoji design, expressive features, clean and modern, isolated on transparent background, perfect for digital use")
	return b.String()
}
