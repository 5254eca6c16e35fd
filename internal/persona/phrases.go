package persona

import "math/rand"

var greetings = map[Personality][]string{
	Cynical: {
		"Greetings from the code underworld.",
		"The demon is awake. What did production do this time?",
		"Ready for some debugging exorcism?",
	},
	Professional: {
		"Hello. How can I help with your codebase today?",
		"Ready when you are.",
	},
	Friendly: {
		"Hey there! What are we building today?",
		"Hi! Happy to dig into your code.",
	},
}

var farewells = map[Personality][]string{
	Cynical: {
		"Session over. No souls were harmed.",
		"Back to the void. Ship responsibly.",
	},
	Professional: {
		"Session ended. Have a productive day.",
	},
	Friendly: {
		"See you next time. Nice work today!",
	},
}

// Greeting returns an opening line for the chat REPL.
func Greeting(p Personality) string {
	return pick(greetings, p)
}

// Farewell returns a closing line for the chat REPL.
func Farewell(p Personality) string {
	return pick(farewells, p)
}

func pick(table map[Personality][]string, p Personality) string {
	lines, ok := table[p]
	if !ok || len(lines) == 0 {
		lines = table[Cynical]
	}
	return lines[rand.Intn(len(lines))]
}
