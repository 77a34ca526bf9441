package names

// Word lists for session names: one random word from each list, joined by
// spaces. Sized for ~46k combinations, which keeps names short while
// making the 1000-attempt retry budget effectively unreachable at any
// plausible number of live sessions.

var adjectives = []string{
	"amber", "bold", "brave", "bright", "calm", "clever", "cold",
	"copper", "crimson", "eager", "fuzzy", "gentle", "golden", "green",
	"happy", "hollow", "humble", "icy", "jolly", "keen", "little",
	"lucky", "mellow", "misty", "noble", "pale", "proud", "quick",
	"quiet", "rapid", "red", "rusty", "silent", "silver", "swift",
	"velvet",
}

var nouns = []string{
	"badger", "bear", "crane", "crow", "deer", "falcon", "ferret",
	"finch", "fox", "hare", "heron", "lark", "lynx", "marmot", "mole",
	"moose", "otter", "owl", "panda", "pike", "raven", "robin",
	"salmon", "seal", "shrew", "sparrow", "stoat", "swan", "tiger",
	"toad", "trout", "turtle", "walrus", "weasel", "wolf", "wren",
}

var verbs = []string{
	"climbs", "crawls", "dances", "darts", "digs", "dives", "dreams",
	"drifts", "flies", "gallops", "glides", "grins", "hides", "hops",
	"howls", "hums", "jumps", "leaps", "listens", "naps", "paddles",
	"peeks", "prowls", "rests", "roams", "rolls", "runs", "sings",
	"sleeps", "slides", "sniffs", "soars", "swims", "waits", "wanders",
	"waves",
}
