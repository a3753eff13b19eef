package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/noah-isme/codequest-api/internal/evaluator"
	"github.com/noah-isme/codequest-api/internal/models"
)

// ErrInvalidCatalog wraps every structural problem found while building a catalog.
var ErrInvalidCatalog = errors.New("invalid catalog")

// File is the YAML layout of a content catalog.
type File struct {
	Users      []UserEntry      `yaml:"users"`
	Modules    []ModuleEntry    `yaml:"modules"`
	Challenges []ChallengeEntry `yaml:"challenges"`
}

// UserEntry seeds an account referenced by issued tokens.
type UserEntry struct {
	Username    string `yaml:"username"`
	Email       string `yaml:"email"`
	DisplayName string `yaml:"display_name"`
	Role        string `yaml:"role"`
}

// ModuleEntry groups lessons in display order.
type ModuleEntry struct {
	Slug        string        `yaml:"slug"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Position    int           `yaml:"position"`
	Lessons     []LessonEntry `yaml:"lessons"`
}

// LessonEntry is a lesson with its inline rule set.
type LessonEntry struct {
	Slug     string                `yaml:"slug"`
	Title    string                `yaml:"title"`
	Content  string                `yaml:"content"`
	Position int                   `yaml:"position"`
	XPReward int                   `yaml:"xp_reward"`
	Tests    []interface{}         `yaml:"tests"`
	Solution *evaluator.Submission `yaml:"solution"`
}

// ChallengeEntry is a standalone challenge with its inline rule set.
type ChallengeEntry struct {
	Slug        string                `yaml:"slug"`
	Title       string                `yaml:"title"`
	Description string                `yaml:"description"`
	Difficulty  string                `yaml:"difficulty"`
	Category    string                `yaml:"category"`
	XPReward    int                   `yaml:"xp_reward"`
	StarterCode *evaluator.Submission `yaml:"starter_code"`
	Tests       []interface{}         `yaml:"tests"`
	Solution    *evaluator.Submission `yaml:"solution"`
}

// Catalog is a validated catalog ready to be persisted.
type Catalog struct {
	Users      []models.User
	Modules    []models.Module
	Challenges []models.Challenge
}

// LessonCount reports how many lessons the catalog carries across modules.
func (c Catalog) LessonCount() int {
	total := 0
	for _, module := range c.Modules {
		total += len(module.Lessons)
	}
	return total
}

// Load reads and validates a YAML catalog from disk.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (Catalog, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalog{}, fmt.Errorf("%w: parse yaml: %v", ErrInvalidCatalog, err)
	}
	return Build(file)
}

// Build converts the YAML layout into models. Slugs are lowercased, rule sets
// are checked against the rule-set schema and duplicates are rejected.
func Build(file File) (Catalog, error) {
	var catalog Catalog

	usernames := make(map[string]struct{}, len(file.Users))
	for i, entry := range file.Users {
		username := strings.TrimSpace(entry.Username)
		if username == "" || strings.TrimSpace(entry.Email) == "" {
			return Catalog{}, fmt.Errorf("%w: user #%d needs a username and email", ErrInvalidCatalog, i+1)
		}
		if _, ok := usernames[username]; ok {
			return Catalog{}, fmt.Errorf("%w: duplicate user %q", ErrInvalidCatalog, username)
		}
		usernames[username] = struct{}{}

		role := strings.ToLower(strings.TrimSpace(entry.Role))
		if role == "" {
			role = "student"
		}

		catalog.Users = append(catalog.Users, models.User{
			Username:    username,
			Email:       strings.TrimSpace(entry.Email),
			DisplayName: strings.TrimSpace(entry.DisplayName),
			Role:        role,
			Level:       1,
		})
	}

	slugs := make(map[string]struct{})
	claim := func(kind, slug string) error {
		if slug == "" {
			return fmt.Errorf("%w: %s without slug", ErrInvalidCatalog, kind)
		}
		key := kind + ":" + slug
		if _, ok := slugs[key]; ok {
			return fmt.Errorf("%w: duplicate %s slug %q", ErrInvalidCatalog, kind, slug)
		}
		slugs[key] = struct{}{}
		return nil
	}

	for _, entry := range file.Modules {
		slug := normalizeSlug(entry.Slug)
		if err := claim("module", slug); err != nil {
			return Catalog{}, err
		}

		module := models.Module{
			Slug:        slug,
			Title:       strings.TrimSpace(entry.Title),
			Description: strings.TrimSpace(entry.Description),
			Position:    entry.Position,
		}
		if module.Title == "" {
			return Catalog{}, fmt.Errorf("%w: module %q needs a title", ErrInvalidCatalog, slug)
		}

		for i, lessonEntry := range entry.Lessons {
			lesson, err := buildLesson(lessonEntry, i+1)
			if err != nil {
				return Catalog{}, err
			}
			if err := claim("lesson", lesson.Slug); err != nil {
				return Catalog{}, err
			}
			module.Lessons = append(module.Lessons, lesson)
		}

		catalog.Modules = append(catalog.Modules, module)
	}

	for _, entry := range file.Challenges {
		challenge, err := buildChallenge(entry)
		if err != nil {
			return Catalog{}, err
		}
		if err := claim("challenge", challenge.Slug); err != nil {
			return Catalog{}, err
		}
		catalog.Challenges = append(catalog.Challenges, challenge)
	}

	return catalog, nil
}

func buildLesson(entry LessonEntry, fallbackPosition int) (models.Lesson, error) {
	slug := normalizeSlug(entry.Slug)
	rules, err := encodeRules("lesson", slug, entry.Tests)
	if err != nil {
		return models.Lesson{}, err
	}

	position := entry.Position
	if position <= 0 {
		position = fallbackPosition
	}

	lesson := models.Lesson{
		Slug:      slug,
		Title:     strings.TrimSpace(entry.Title),
		Content:   entry.Content,
		Position:  position,
		XPReward:  clampXP(entry.XPReward),
		TestCases: rules,
		Solution:  encodeSubmission(entry.Solution),
	}
	if lesson.Title == "" {
		return models.Lesson{}, fmt.Errorf("%w: lesson %q needs a title", ErrInvalidCatalog, slug)
	}
	return lesson, nil
}

func buildChallenge(entry ChallengeEntry) (models.Challenge, error) {
	slug := normalizeSlug(entry.Slug)
	rules, err := encodeRules("challenge", slug, entry.Tests)
	if err != nil {
		return models.Challenge{}, err
	}

	difficulty := strings.ToLower(strings.TrimSpace(entry.Difficulty))
	switch difficulty {
	case "":
		difficulty = models.DifficultyBeginner
	case models.DifficultyBeginner, models.DifficultyIntermediate, models.DifficultyAdvanced:
	default:
		return models.Challenge{}, fmt.Errorf("%w: challenge %q has unknown difficulty %q", ErrInvalidCatalog, slug, entry.Difficulty)
	}

	challenge := models.Challenge{
		Slug:        slug,
		Title:       strings.TrimSpace(entry.Title),
		Description: strings.TrimSpace(entry.Description),
		Difficulty:  difficulty,
		Category:    strings.TrimSpace(entry.Category),
		XPReward:    clampXP(entry.XPReward),
		StarterCode: encodeSubmission(entry.StarterCode),
		TestCases:   rules,
		Solution:    encodeSubmission(entry.Solution),
	}
	if challenge.Title == "" {
		return models.Challenge{}, fmt.Errorf("%w: challenge %q needs a title", ErrInvalidCatalog, slug)
	}
	if challenge.StarterCode == nil {
		challenge.StarterCode = datatypes.JSON([]byte("{}"))
	}
	return challenge, nil
}

// encodeRules re-encodes YAML rule lists as JSON and runs them through the
// rule-set schema so stored rules always decode.
func encodeRules(kind, slug string, tests []interface{}) (datatypes.JSON, error) {
	if tests == nil {
		tests = []interface{}{}
	}
	raw, err := json.Marshal(tests)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q rules: %v", ErrInvalidCatalog, kind, slug, err)
	}
	rules, err := evaluator.ValidateRuleSet(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q rules: %v", ErrInvalidCatalog, kind, slug, err)
	}
	normalized, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q rules: %v", ErrInvalidCatalog, kind, slug, err)
	}
	return datatypes.JSON(normalized), nil
}

func encodeSubmission(submission *evaluator.Submission) datatypes.JSON {
	if submission == nil {
		return nil
	}
	data, err := json.Marshal(submission)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

func clampXP(xp int) int {
	if xp < 0 {
		return 0
	}
	return xp
}

// LoadRules reads a rule set from a YAML or JSON file.
func LoadRules(path string) ([]evaluator.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var tests []interface{}
	if err := yaml.Unmarshal(data, &tests); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	raw, err := json.Marshal(tests)
	if err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	return evaluator.ValidateRuleSet(raw)
}

// Solution directory file names.
const (
	SolutionHTMLFile = "index.html"
	SolutionCSSFile  = "style.css"
	SolutionJSFile   = "script.js"
)

// LoadSubmission reads submission sources from the given files. Empty paths
// leave the matching field blank.
func LoadSubmission(htmlPath, cssPath, jsPath string) (evaluator.Submission, error) {
	var submission evaluator.Submission
	targets := []struct {
		path  string
		field *string
	}{
		{htmlPath, &submission.HTML},
		{cssPath, &submission.CSS},
		{jsPath, &submission.JS},
	}

	for _, target := range targets {
		if target.path == "" {
			continue
		}
		data, err := os.ReadFile(target.path)
		if err != nil {
			return evaluator.Submission{}, fmt.Errorf("read source file: %w", err)
		}
		*target.field = string(data)
	}

	return submission, nil
}

// LoadSolutionDir reads index.html, style.css and script.js from dir. Missing
// files are treated as empty sources.
func LoadSolutionDir(dir string) (*evaluator.Submission, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open solution directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("solution path %q is not a directory", dir)
	}

	paths := make([]string, 0, 3)
	for _, name := range []string{SolutionHTMLFile, SolutionCSSFile, SolutionJSFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				paths = append(paths, "")
				continue
			}
			return nil, fmt.Errorf("stat solution file: %w", err)
		}
		paths = append(paths, path)
	}

	submission, err := LoadSubmission(paths[0], paths[1], paths[2])
	if err != nil {
		return nil, err
	}
	return &submission, nil
}
