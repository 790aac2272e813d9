package assessment

// Inputs shared by the AI operations. Model replies are passed through as
// parsed JSON and have no Go types here.

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

type Language string

const (
	English Language = "en"
	French  Language = "fr"
)

// NormalizeLanguage maps anything that is not French to English.
func NormalizeLanguage(l string) Language {
	if Language(l) == French {
		return French
	}
	return English
}

type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
}
