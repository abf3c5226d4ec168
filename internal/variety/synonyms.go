package variety

// #region tables

// synonyms is the built-in substitution table, consulted after a voice's own
// synonyms.
var synonyms = map[string][]string{
	"said":      {"remarked", "noted", "replied", "answered"},
	"says":      {"remarks", "notes", "replies"},
	"asked":     {"inquired", "wondered", "pressed"},
	"walked":    {"strode", "wandered", "stepped", "paced"},
	"looked":    {"glanced", "peered", "gazed"},
	"stared":    {"gazed", "glared", "watched"},
	"whispered": {"murmured", "breathed", "muttered"},
	"shouted":   {"yelled", "bellowed", "cried"},
	"smiled":    {"grinned", "beamed", "smirked"},
	"turned":    {"wheeled", "pivoted", "spun"},
	"moved":     {"shifted", "stirred", "edged"},
	"ran":       {"dashed", "sprinted", "raced"},
	"dark":      {"dim", "shadowed", "gloomy"},
	"cold":      {"chill", "frigid", "icy"},
	"quiet":     {"hushed", "silent", "still"},
	"silence":   {"stillness", "hush", "quiet"},
	"suddenly":  {"abruptly", "without warning", "all at once"},
	"quickly":   {"swiftly", "briskly", "hastily"},
	"slowly":    {"gradually", "unhurriedly", "languidly"},
	"heavy":     {"weighty", "leaden", "ponderous"},
	"ancient":   {"old", "timeworn", "age-old"},
	"small":     {"little", "slight", "modest"},
	"large":     {"great", "vast", "broad"},
	"angry":     {"furious", "irate", "incensed"},
	"afraid":    {"fearful", "frightened", "uneasy"},
	"happy":     {"glad", "cheerful", "content"},
	"shadows":   {"gloom", "darkness", "shade"},
	"voice":     {"tone", "words"},
	"night":     {"evening", "dark"},
	"light":     {"glow", "gleam", "glimmer"},
	"storm":     {"tempest", "gale", "squall"},
	"blood":     {"gore"},
	"sword":     {"blade", "steel"},
	"battle":    {"fight", "clash", "skirmish"},
	"hello":     {"greetings", "well met"},
	"strange":   {"odd", "curious", "peculiar"},
	"terrible":  {"dreadful", "awful", "grim"},
	"beautiful": {"lovely", "striking", "handsome"},
	"tired":     {"weary", "spent", "drained"},
	"crowd":     {"throng", "gathering", "press"},
	"table":     {"board"},
	"glass":     {"goblet", "cup"},
	"laughed":   {"chuckled", "chortled", "snickered"},
}

// connectives open a sentence when its first words must change.
var connectives = []string{
	"Meanwhile", "Just then", "Even so", "After a moment", "Without warning",
	"Before long", "In the end", "For a moment", "Once again", "All the while",
}

// functionWords start a sentence in lowercase once something is put before
// them. Anything else, names included, keeps its case.
var functionWords = map[string]bool{
	"the": true, "a": true, "an": true, "his": true, "her": true, "their": true,
	"its": true, "it": true, "he": true, "she": true, "they": true, "we": true,
	"you": true, "this": true, "that": true, "these": true, "those": true,
	"someone": true, "something": true, "nobody": true, "everyone": true,
	"there": true, "then": true, "when": true, "as": true, "with": true,
	"in": true, "on": true, "at": true, "by": true, "from": true, "for": true,
	"one": true, "no": true, "every": true, "each": true, "some": true,
	"under": true, "over": true, "beneath": true, "behind": true, "beyond": true,
	"across": true, "through": true, "after": true, "before": true, "inside": true,
	"outside": true, "near": true, "along": true, "around": true, "above": true,
	"below": true, "among": true, "against": true, "into": true, "without": true,
	"within": true, "toward": true, "during": true, "once": true, "while": true,
	"despite": true, "upon": true, "somewhere": true, "later": true, "now": true,
}

var conjunctions = []string{"and", "but", "or", "so", "yet"}

// #endregion
