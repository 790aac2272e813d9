package ai

import (
	"strings"
	"testing"

	"github.com/geocoder89/eduai/internal/domain/assessment"
)

func TestRender_LanguageSelection(t *testing.T) {
	data := struct {
		Topic      string
		Difficulty assessment.Difficulty
		Count      int
	}{"recursion", assessment.Beginner, 3}

	en, err := render(promptQuestionsUser, assessment.English, data)
	if err != nil {
		t.Fatalf("render en: %v", err)
	}
	if en != `Generate 3 coding questions about "recursion" at beginner level.` {
		t.Fatalf("unexpected english prompt %q", en)
	}

	fr, err := render(promptQuestionsUser, assessment.French, data)
	if err != nil {
		t.Fatalf("render fr: %v", err)
	}
	if !strings.HasPrefix(fr, "Génère 3 questions") {
		t.Fatalf("unexpected french prompt %q", fr)
	}
}

func TestRender_ReviewFallsBackToEnglish(t *testing.T) {
	data := struct {
		Code, Language, Specifications, Standards, Fence string
	}{"print(1)", "python", "", "PEP8", fence}

	got, err := render(promptReviewUser, assessment.French, data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if strings.Contains(got, "Project Specifications") {
		t.Fatalf("empty specifications should be omitted: %q", got)
	}
	for _, want := range []string{"**Coding Standards**: PEP8", "```python\nprint(1)\n```"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
}

func TestRender_GradeTestCases(t *testing.T) {
	data := struct {
		Question, StudentCode, ExpectedSolution, Fence string
		TestCases                                      []assessment.TestCase
	}{
		Question:    "sum",
		StudentCode: "a+b",
		Fence:       fence,
		TestCases: []assessment.TestCase{
			{Input: "1,2", ExpectedOutput: "3"},
			{Input: "2,2", ExpectedOutput: "4"},
		},
	}

	got, err := render(promptGradeUser, assessment.English, data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := "Test 1: Input: 1,2, Expected Output: 3\nTest 2: Input: 2,2, Expected Output: 4\n"
	if !strings.HasSuffix(got, want) {
		t.Fatalf("expected test case listing %q in %q", want, got)
	}
}

func TestRender_ExamTopicDefault(t *testing.T) {
	data := struct {
		NumberOfQuestions int
		Difficulty        assessment.Difficulty
		Topic, Latex      string
	}{10, assessment.Intermediate, "", `\section{Limits}`}

	got, err := render(promptExamSystem, assessment.French, data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(got, `"topic": "Dérivé du contenu LaTeX"`) || !strings.Contains(got, `"totalQuestions": 10`) {
		t.Fatalf("unexpected exam prompt %q", got)
	}
}
