package review

type TemplateCategory string

const (
	CategoryPositive     TemplateCategory = "positive"
	CategoryDetailed     TemplateCategory = "detailed"
	CategoryProfessional TemplateCategory = "professional"
)

// Template is a canned review text a customer can start from.
type Template struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Category TemplateCategory `json:"category"`
	Text     string           `json:"text"`
}

var templates = []Template{
	{
		ID:       "quick-5star",
		Title:    "Quick 5-Star",
		Category: CategoryPositive,
		Text:     "Excellent service! Highly recommend to everyone. Professional, friendly, and efficient. Will definitely return!",
	},
	{
		ID:       "detailed-experience",
		Title:    "Detailed Experience",
		Category: CategoryDetailed,
		Text:     "I had a wonderful experience from start to finish. The staff was incredibly welcoming and took the time to understand exactly what I needed. The quality of service exceeded my expectations in every way. I appreciated the attention to detail and the genuine care shown throughout my visit. This business truly stands out and I will be recommending them to all my friends and family.",
	},
	{
		ID:       "professional-review",
		Title:    "Professional",
		Category: CategoryProfessional,
		Text:     "Impressed by the level of professionalism displayed by this business. Communication was clear, service was prompt, and the results were exactly as promised. A reliable choice that I would confidently recommend.",
	},
	{
		ID:       "value-appreciation",
		Title:    "Great Value",
		Category: CategoryPositive,
		Text:     "Outstanding value! The quality far exceeded what I expected at this price point. The team went above and beyond to ensure complete satisfaction. This has become my go-to spot!",
	},
	{
		ID:       "first-visit",
		Title:    "First Time Visitor",
		Category: CategoryDetailed,
		Text:     "This was my first visit and I was thoroughly impressed! The atmosphere was welcoming, the service was top-notch, and everything was handled with care. I can see why this place has such great reviews. Looking forward to my next visit!",
	},
}

// Templates returns a copy of every review template.
func Templates() []Template {
	ans := make([]Template, len(templates))
	copy(ans, templates)

	return ans
}

func TemplatesByCategory(category TemplateCategory) []Template {
	ans := make([]Template, 0, len(templates))

	for _, t := range templates {
		if t.Category == category {
			ans = append(ans, t)
		}
	}

	return ans
}

func ValidCategory(category TemplateCategory) bool {
	switch category {
	case CategoryPositive, CategoryDetailed, CategoryProfessional:
		return true
	default:
		return false
	}
}
