package personality

// Personality names a tone preset that shapes the system prompt.
type Personality string

const (
	Friendly     Personality = "Friendly"
	Funny        Personality = "Funny"
	Professional Personality = "Professional"
	Supportive   Personality = "Supportive"
)

// Default is used whenever a caller supplies an unknown personality.
const Default = Friendly

// Option describes a personality as the frontend selector shows it.
type Option struct {
	Value Personality `json:"value"`
	Label string      `json:"label"`
	Emoji string      `json:"emoji"`
}

var instructions = map[Personality]string{
	Friendly:     "Be warm, casual and upbeat, like a close friend catching up over coffee. Keep things light and encouraging.",
	Funny:        "Be playful and witty. Use light humor, playful exaggeration and the occasional pun, but never at the user's expense.",
	Professional: "Be clear, concise and polished. Focus on practical, well-structured advice and keep small talk to a minimum.",
	Supportive:   "Be gentle, patient and validating. Acknowledge the user's feelings before anything else and offer steady encouragement.",
}

var catalog = []Option{
	{Value: Friendly, Label: "Friendly", Emoji: "😊"},
	{Value: Funny, Label: "Funny", Emoji: "😂"},
	{Value: Professional, Label: "Professional", Emoji: "💼"},
	{Value: Supportive, Label: "Supportive", Emoji: "💙"},
}

// Resolve returns the personality matching name exactly, or Default.
func Resolve(name string) Personality {
	if p := Personality(name); p.Valid() {
		return p
	}
	return Default
}

// Valid reports whether p belongs to the fixed catalog.
func (p Personality) Valid() bool {
	_, ok := instructions[p]
	return ok
}

// Instruction returns the prompt fragment for p. Unknown values fall back
// to the Default fragment.
func Instruction(p Personality) string {
	if !p.Valid() {
		p = Default
	}
	return instructions[p]
}

// All lists the catalog in display order.
func All() []Option {
	return append([]Option(nil), catalog...)
}
