package catalog_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codequest-api/internal/catalog"
	"github.com/noah-isme/codequest-api/internal/evaluator"
	"github.com/noah-isme/codequest-api/internal/models"
)

const sampleCatalog = `
users:
  - username: ada
    email: ada@example.com
    display_name: Ada
    role: Admin
modules:
  - slug: HTML-Basics
    title: HTML basics
    position: 1
    lessons:
      - slug: headings
        title: Headings
        xp_reward: 20
        tests:
          - kind: element_exists
            selector: h1
            points: 10
        solution:
          html: "<h1>Hello</h1>"
      - slug: paragraphs
        title: Paragraphs
        xp_reward: 20
        tests:
          - type: element_text_contains
            selector: p
            expected: hello
            points: "5"
challenges:
  - slug: red-title
    title: Red title
    difficulty: intermediate
    xp_reward: 50
    starter_code:
      html: "<h1></h1>"
    tests:
      - kind: css_property
        selector: h1
        property: color
        expected: red
        points: 10
`

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:catalog_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func TestParseNormalisesEntries(t *testing.T) {
	parsed, err := catalog.Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	require.Len(t, parsed.Users, 1)
	require.Equal(t, "admin", parsed.Users[0].Role)

	require.Len(t, parsed.Modules, 1)
	require.Equal(t, "html-basics", parsed.Modules[0].Slug)
	require.Equal(t, 2, parsed.LessonCount())
	require.Equal(t, 2, parsed.Modules[0].Lessons[1].Position)

	rules, err := parsed.Modules[0].Lessons[1].Rules()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Equal(t, evaluator.KindElementTextContains, rules[0].Kind)
	require.Equal(t, 5, rules[0].Points)

	solution, err := parsed.Modules[0].Lessons[0].ReferenceSolution()
	require.NoError(t, err)
	require.NotNil(t, solution)
	require.Equal(t, "<h1>Hello</h1>", solution.HTML)

	require.Len(t, parsed.Challenges, 1)
	require.Equal(t, models.DifficultyIntermediate, parsed.Challenges[0].Difficulty)
	require.Equal(t, "<h1></h1>", parsed.Challenges[0].Starter().HTML)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := map[string]string{
		"bad yaml":          "modules: [",
		"unknown rule kind": "challenges:\n  - slug: a\n    title: A\n    tests:\n      - kind: nope\n",
		"duplicate slug":    "challenges:\n  - slug: a\n    title: A\n  - slug: A\n    title: B\n",
		"missing title":     "modules:\n  - slug: m\n",
		"bad difficulty":    "challenges:\n  - slug: a\n    title: A\n    difficulty: legendary\n",
		"user without mail": "users:\n  - username: bob\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Parse([]byte(doc))
			require.ErrorIs(t, err, catalog.ErrInvalidCatalog)
		})
	}
}

func TestSeedUpsertsBySlug(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	parsed, err := catalog.Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	_, err = catalog.Seed(ctx, db, parsed)
	require.NoError(t, err)

	parsed.Challenges[0].Title = "Crimson title"
	_, err = catalog.Seed(ctx, db, parsed)
	require.NoError(t, err)

	var challenges []models.Challenge
	require.NoError(t, db.Find(&challenges).Error)
	require.Len(t, challenges, 1)
	require.Equal(t, "Crimson title", challenges[0].Title)

	var module models.Module
	require.NoError(t, db.Preload("Lessons").Where("slug = ?", "html-basics").First(&module).Error)
	require.Len(t, module.Lessons, 2)
	for _, lesson := range module.Lessons {
		require.Equal(t, module.ID, lesson.ModuleID)
	}

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.Equal(t, int64(1), users)
}

func TestLoadRulesAndSolutionDir(t *testing.T) {
	dir := t.TempDir()

	rulesPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte("- kind: element_exists\n  selector: button\n  points: 10\n"), 0o600))

	rules, err := catalog.LoadRules(rulesPath)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	jsonRules := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(jsonRules, []byte(`[{"kind":"code_contains","codeType":"js","pattern":"fetch","points":5}]`), 0o600))
	rules, err = catalog.LoadRules(jsonRules)
	require.NoError(t, err)
	require.Equal(t, evaluator.KindCodeContains, rules[0].Kind)

	solutionDir := filepath.Join(dir, "solution")
	require.NoError(t, os.Mkdir(solutionDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(solutionDir, catalog.SolutionHTMLFile), []byte("<button>Go</button>"), 0o600))

	solution, err := catalog.LoadSolutionDir(solutionDir)
	require.NoError(t, err)
	require.Equal(t, "<button>Go</button>", solution.HTML)
	require.Empty(t, solution.CSS)

	_, err = catalog.LoadSolutionDir(rulesPath)
	require.Error(t, err)

	submission, err := catalog.LoadSubmission(filepath.Join(solutionDir, catalog.SolutionHTMLFile), "", "")
	require.NoError(t, err)
	require.Equal(t, "<button>Go</button>", submission.HTML)
}
