package ai

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/geocoder89/eduai/internal/domain/assessment"
)

const fence = "```"

type promptKey struct {
	name string
	lang assessment.Language
}

var prompts = map[promptKey]*template.Template{}

var promptFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

func define(name string, lang assessment.Language, text string) {
	prompts[promptKey{name, lang}] = template.Must(
		template.New(name + "." + string(lang)).Funcs(promptFuncs).Option("missingkey=error").Parse(text),
	)
}

// render executes the named template for lang, falling back to English.
func render(name string, lang assessment.Language, data any) (string, error) {
	tmpl, ok := prompts[promptKey{name, lang}]
	if !ok {
		tmpl, ok = prompts[promptKey{name, assessment.English}]
	}
	if !ok {
		return "", fmt.Errorf("no prompt named %q", name)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return b.String(), nil
}

const (
	promptQuestionsSystem = "questions.system"
	promptQuestionsUser   = "questions.user"
	promptReviewSystem    = "review.system"
	promptReviewUser      = "review.user"
	promptExamSystem      = "exam.system"
	promptExamUser        = "exam.user"
	promptGradeSystem     = "grade.system"
	promptGradeUser       = "grade.user"
	promptImage           = "image"
)

func init() {
	define(promptQuestionsSystem, assessment.English, `You are an expert computer science educator. Generate {{.Count}} coding questions at {{.Difficulty}} level for the topic "{{.Topic}}".

Each question should include:
- Clear problem statement with context
- Code completion field
- Precise evaluation criteria
- Detailed solution explanation
- Time estimation

Required JSON format:
{
  "questions": [
    {
      "id": "unique_id",
      "title": "Question Title",
      "content": "Complete problem statement with context and instructions",
      "type": "code-completion",
      "difficulty": "{{.Difficulty}}",
      "points": 10,
      "estimatedTime": 15,
      "codeTemplate": "// Base code to complete\nfunction example() {\n  // YOUR CODE HERE\n}",
      "solution": "Complete solution",
      "explanation": "Detailed explanation of the solution",
      "testCases": [
        {"input": "test input", "expectedOutput": "expected output"}
      ],
      "tags": ["tag1", "tag2"]
    }
  ]
}`)
	define(promptQuestionsSystem, assessment.French, `Tu es un expert en éducation informatique. Génère {{.Count}} questions de programmation de niveau {{.Difficulty}} sur le sujet "{{.Topic}}".

Chaque question doit inclure:
- Un énoncé clair avec contexte
- Un champ de code à compléter
- Des critères d'évaluation précis
- Une explication détaillée de la solution
- Une estimation du temps requis

Format JSON requis:
{
  "questions": [
    {
      "id": "unique_id",
      "title": "Titre de la question",
      "content": "Énoncé complet avec contexte et instructions",
      "type": "code-completion",
      "difficulty": "{{.Difficulty}}",
      "points": 10,
      "estimatedTime": 15,
      "codeTemplate": "// Code de base à compléter\nfunction example() {\n  // VOTRE CODE ICI\n}",
      "solution": "Solution complète",
      "explanation": "Explication détaillée de la solution",
      "testCases": [
        {"input": "entrée test", "expectedOutput": "sortie attendue"}
      ],
      "tags": ["tag1", "tag2"]
    }
  ]
}`)
	define(promptQuestionsUser, assessment.English, `Generate {{.Count}} coding questions about "{{.Topic}}" at {{.Difficulty}} level.`)
	define(promptQuestionsUser, assessment.French, `Génère {{.Count}} questions de programmation sur "{{.Topic}}" de niveau {{.Difficulty}}.`)

	define(promptReviewSystem, assessment.English, `You are a code review expert. Analyze the provided code based on these criteria:

1. **Readability** (0-100): Clarity, naming, structure
2. **Performance** (0-100): Algorithmic efficiency, optimization
3. **Security** (0-100): Vulnerabilities, security best practices
4. **Maintainability** (0-100): Ease of modification, documentation
5. **Best Practices** (0-100): Conventions, patterns, architecture

Also provide:
- List of specific improvements with line numbers
- Helper questions for non-technical reviewers
- Overall score and detailed comments

Required JSON format:
{
  "analysis": {
    "readability": 85,
    "performance": 70,
    "security": 90,
    "maintainability": 75,
    "bestPractices": 80,
    "comments": ["Detailed comment 1", "Detailed comment 2"]
  },
  "improvements": [
    {
      "line": 15,
      "type": "warning",
      "message": "Issue description",
      "suggestion": "Proposed solution",
      "priority": "high"
    }
  ],
  "helperQuestions": [
    {
      "question": "Question to help understand",
      "context": "Question context",
      "suggestedResponse": "Suggested response"
    }
  ],
  "overallScore": 80,
  "summary": "Analysis summary"
}`)
	define(promptReviewSystem, assessment.French, `Tu es un expert en révision de code. Analyse le code fourni selon ces critères:

1. **Lisibilité** (0-100): Clarté, nommage, structure
2. **Performance** (0-100): Efficacité algorithmique, optimisation
3. **Sécurité** (0-100): Vulnérabilités, bonnes pratiques sécuritaires
4. **Maintenabilité** (0-100): Facilité de modification, documentation
5. **Bonnes Pratiques** (0-100): Conventions, patterns, architecture

Fournis aussi:
- Liste d'améliorations spécifiques avec numéros de ligne
- Questions d'aide pour les non-techniques
- Score global et commentaires détaillés

Format JSON requis:
{
  "analysis": {
    "readability": 85,
    "performance": 70,
    "security": 90,
    "maintainability": 75,
    "bestPractices": 80,
    "comments": ["Commentaire détaillé 1", "Commentaire détaillé 2"]
  },
  "improvements": [
    {
      "line": 15,
      "type": "warning",
      "message": "Description du problème",
      "suggestion": "Solution proposée",
      "priority": "high"
    }
  ],
  "helperQuestions": [
    {
      "question": "Question pour aider à comprendre",
      "context": "Contexte de la question",
      "suggestedResponse": "Réponse suggérée"
    }
  ],
  "overallScore": 80,
  "summary": "Résumé de l'analyse"
}`)
	define(promptReviewUser, assessment.English, `
**Programming Language**: {{.Language}}
{{if .Specifications}}**Project Specifications**: {{.Specifications}}{{end}}
{{if .Standards}}**Coding Standards**: {{.Standards}}{{end}}

**Code to Analyze**:
{{.Fence}}{{.Language}}
{{.Code}}
{{.Fence}}
`)

	define(promptExamSystem, assessment.English, `You are an expert educational exam creator. From the provided LaTeX content, generate {{.NumberOfQuestions}} multiple-choice questions at {{.Difficulty}} level.

Each question should:
- Test understanding of key competencies from the subject
- Have 4 answer options (A, B, C, D)
- Have ONE correct answer only
- Include detailed explanation
- Be based on the provided LaTeX content

Required JSON format:
{
  "exam": {
    "title": "Exam title based on content",
    "topic": "{{if .Topic}}{{.Topic}}{{else}}Derived from LaTeX content{{end}}",
    "difficulty": "{{.Difficulty}}",
    "totalQuestions": {{.NumberOfQuestions}},
    "questions": [
      {
        "id": "q1",
        "question": "Complete question with context",
        "options": [
          {"id": "A", "text": "Option A", "isCorrect": false},
          {"id": "B", "text": "Option B", "isCorrect": true},
          {"id": "C", "text": "Option C", "isCorrect": false},
          {"id": "D", "text": "Option D", "isCorrect": false}
        ],
        "explanation": "Detailed explanation of why B is correct",
        "difficulty": "{{.Difficulty}}",
        "points": 5,
        "topic": "Specific subtopic"
      }
    ]
  }
}`)
	define(promptExamSystem, assessment.French, `Tu es un expert en création d'examens éducatifs. À partir du contenu LaTeX fourni, génère {{.NumberOfQuestions}} questions à choix multiples de niveau {{.Difficulty}}.

Chaque question doit:
- Tester la compréhension des compétences clés du sujet
- Avoir 4 options de réponse (A, B, C, D)
- Avoir UNE seule réponse correcte
- Inclure une explication détaillée
- Être basée sur le contenu LaTeX fourni

Format JSON requis:
{
  "exam": {
    "title": "Titre de l'examen basé sur le contenu",
    "topic": "{{if .Topic}}{{.Topic}}{{else}}Dérivé du contenu LaTeX{{end}}",
    "difficulty": "{{.Difficulty}}",
    "totalQuestions": {{.NumberOfQuestions}},
    "questions": [
      {
        "id": "q1",
        "question": "Question complète avec contexte",
        "options": [
          {"id": "A", "text": "Option A", "isCorrect": false},
          {"id": "B", "text": "Option B", "isCorrect": true},
          {"id": "C", "text": "Option C", "isCorrect": false},
          {"id": "D", "text": "Option D", "isCorrect": false}
        ],
        "explanation": "Explication détaillée de pourquoi B est correct",
        "difficulty": "{{.Difficulty}}",
        "points": 5,
        "topic": "Sous-sujet spécifique"
      }
    ]
  }
}`)
	define(promptExamUser, assessment.English, "Here is the LaTeX content to generate the exam from:\n\n{{.Latex}}")
	define(promptExamUser, assessment.French, "Voici le contenu LaTeX pour générer l'examen:\n\n{{.Latex}}")

	define(promptGradeSystem, assessment.English, `You are an expert programming grader. Evaluate the student's answer based on these criteria:

1. **Correctness** (0-100): Does the solution solve the problem correctly?
2. **Efficiency** (0-100): Is the algorithm optimal?
3. **Style** (0-100): Does the code follow best practices?
4. **Completeness** (0-100): Are all requirements satisfied?

Required JSON format:
{
  "evaluation": {
    "correctness": 85,
    "efficiency": 70,
    "style": 90,
    "completeness": 80,
    "overallScore": 81,
    "passed": true
  },
  "feedback": "Detailed feedback for the student",
  "suggestions": ["Improvement 1", "Improvement 2"],
  "testResults": [
    {"test": 1, "passed": true, "expected": "5", "actual": "5"},
    {"test": 2, "passed": false, "expected": "10", "actual": "8"}
  ]
}`)
	define(promptGradeSystem, assessment.French, `Tu es un correcteur expert en programmation. Évalue la réponse de l'étudiant selon ces critères:

1. **Exactitude** (0-100): La solution résout-elle le problème correctement?
2. **Efficacité** (0-100): L'algorithme est-il optimal?
3. **Style** (0-100): Le code suit-il les bonnes pratiques?
4. **Complétude** (0-100): Toutes les exigences sont-elles satisfaites?

Format JSON requis:
{
  "evaluation": {
    "correctness": 85,
    "efficiency": 70,
    "style": 90,
    "completeness": 80,
    "overallScore": 81,
    "passed": true
  },
  "feedback": "Commentaires détaillés pour l'étudiant",
  "suggestions": ["Amélioration 1", "Amélioration 2"],
  "testResults": [
    {"test": 1, "passed": true, "expected": "5", "actual": "5"},
    {"test": 2, "passed": false, "expected": "10", "actual": "8"}
  ]
}`)
	define(promptGradeUser, assessment.English, `
**Question**: {{.Question}}

**Expected Solution**:
{{.Fence}}
{{.ExpectedSolution}}
{{.Fence}}

**Student's Code**:
{{.Fence}}
{{.StudentCode}}
{{.Fence}}

**Test Cases**:
{{range $i, $tc := .TestCases}}{{if $i}}
{{end}}Test {{inc $i}}: Input: {{$tc.Input}}, Expected Output: {{$tc.ExpectedOutput}}{{end}}
`)

	define(promptImage, assessment.English, "Educational illustration: {{.Description}}. Context: {{.Context}}. Style: clean, professional, modern educational design suitable for academic platform. High quality, clear, and engaging for students and professors.")
}
