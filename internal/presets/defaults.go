// internal/presets/defaults.go
package presets

// Defaults returns the built-in preset collection used to seed a new presets file.
func Defaults() []Preset {
	return []Preset{
		{
			Name: "Good Morning Messages",
			Messages: []string{
				"Good morning sunshine! ☀️",
				"Rise and shine! Hope you have an amazing day! 🌞",
				"Morning! Sending you positive vibes for the day ahead! ✨",
				"Good morning! I was thinking about you as soon as I woke up! 💭",
			},
			Description: "Morning greeting messages",
		},
		{
			Name: "Good Night Messages",
			Messages: []string{
				"Good night! Sweet dreams! 🌙✨",
				"Sleep tight! 😴",
				"Rest well! Tomorrow is a new day! 🌃",
				"Good night! Can't wait for tomorrow! 😊",
			},
			Description: "Night greeting messages",
		},
		{
			Name: "Appreciation Messages",
			Messages: []string{
				"Thank you for always being there for me. 🌍",
				"I appreciate everything you do. You're amazing! ✨",
				"Your kindness never goes unnoticed. 💝",
				"Grateful for you! 🙏",
			},
			Description: "Messages expressing gratitude",
		},
		{
			Name:        "Check-in",
			Message:     "Hi! Just checking in.\nHow is everything going?",
			Description: "A single two-line message",
		},
	}
}
