package persona

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
	"github.com/persimmon-labs/uxagent-cli/internal/llmutil"
)

// Constraints narrow what kind of persona gets generated. Empty or "Any"
// fields leave the model free.
type Constraints struct {
	AgeRange       string
	Gender         string
	TechExperience string
	IncomeLevel    string
	EducationLevel string
}

// Generator produces realistic user personas through the LLM, falling back
// to a fixed persona when the model misbehaves.
type Generator struct {
	client schemas.LLMClient
	logger *zap.Logger
}

func NewGenerator(client schemas.LLMClient, logger *zap.Logger) *Generator {
	return &Generator{
		client: client,
		logger: logger.Named("persona"),
	}
}

// Generate creates one persona honoring the constraints. Previous personas
// are summarized into the prompt so repeated calls diversify. Model or parse
// failures degrade to the fallback persona rather than an error.
func (g *Generator) Generate(ctx context.Context, c Constraints, previous []schemas.Persona) schemas.Persona {
	req := schemas.GenerationRequest{
		SystemPrompt: "You are a helpful AI assistant that generates realistic user personas for UX testing.",
		UserPrompt:   buildPrompt(c, previous),
		Options: schemas.GenerationOptions{
			Temperature:     0.7,
			ForceJSONFormat: true,
		},
	}

	response, err := g.client.Generate(ctx, req)
	if err != nil {
		g.logger.Warn("Persona generation failed, using fallback", zap.Error(err))
		return Fallback()
	}

	persona, err := llmutil.ExtractJSON[schemas.Persona](response)
	if err != nil {
		g.logger.Warn("Could not parse generated persona, using fallback", zap.Error(err))
		return Fallback()
	}
	return *persona
}

// GenerateN creates count personas, feeding each one back into the next
// prompt to keep the set diverse.
func (g *Generator) GenerateN(ctx context.Context, count int, c Constraints) []schemas.Persona {
	personas := make([]schemas.Persona, 0, count)
	for i := 0; i < count; i++ {
		personas = append(personas, g.Generate(ctx, c, personas))
	}
	return personas
}

func buildPrompt(c Constraints, previous []schemas.Persona) string {
	var constraints []string
	add := func(label, value string) {
		if value != "" && !strings.EqualFold(value, "any") {
			constraints = append(constraints, fmt.Sprintf("- %s: %s", label, value))
		}
	}
	add("Age range", c.AgeRange)
	add("Gender", c.Gender)
	add("Tech experience level", c.TechExperience)
	add("Income level", c.IncomeLevel)
	add("Education level", c.EducationLevel)

	constraintsText := "No specific constraints."
	if len(constraints) > 0 {
		constraintsText = strings.Join(constraints, "\n")
	}

	var prevSummaries []string
	for i, p := range previous {
		prevSummaries = append(prevSummaries, fmt.Sprintf("Persona %d: %v, %v y/o %v, %v",
			i+1, fieldOr(p, "name"), fieldOr(p, "age"), fieldOr(p, "gender"), fieldOr(p, "occupation")))
	}
	previousText := strings.Join(prevSummaries, "\n")

	var sb strings.Builder
	sb.WriteString("Generate a realistic user persona for UX testing with the following properties:\n\n")
	sb.WriteString("1. Basic Demographics: full name, age (a specific number, not a range), gender, location (city, country), occupation, education level, income bracket.\n")
	sb.WriteString("2. Technical Profile: tech experience level (Beginner, Intermediate, or Advanced), devices regularly used, hours spent online per week, favorite apps/websites, tech challenges or frustrations.\n")
	sb.WriteString("3. Behavioral Traits: 3-5 personality traits relevant to digital interaction, decision-making style, risk tolerance, patience level with technology.\n")
	sb.WriteString("4. Goals and Motivations: 2-4 primary user goals when using websites/apps, what motivates them, what satisfies them in a digital experience.\n")
	sb.WriteString("5. Pain Points: 2-4 specific frustrations when using technology, accessibility needs (if any), trust concerns.\n\n")
	sb.WriteString("Constraints:\n")
	sb.WriteString(constraintsText)
	sb.WriteString("\n\nPrevious personas (create a different persona):\n")
	sb.WriteString(previousText)
	sb.WriteString("\n\nReturn ONLY a JSON object with these keys: ")
	sb.WriteString(`"name", "age", "gender", "location", "occupation", "education", "income", "techExperience", "devices", "hoursOnline", "favoriteApps", "techChallenges", "traits", "decisionStyle", "riskTolerance", "patienceLevel", "goals", "motivations", "painPoints", "accessibilityNeeds", "trustConcerns".`)
	sb.WriteString("\n\nMake sure the persona feels realistic, consistent, and has enough specific details to be useful for UX testing.")
	return sb.String()
}

func fieldOr(p schemas.Persona, key string) interface{} {
	if v, ok := p[key]; ok {
		return v
	}
	return "Unknown"
}

// Fallback is the persona used when generation fails.
func Fallback() schemas.Persona {
	return schemas.Persona{
		"name":               "Alex Johnson",
		"age":                35,
		"gender":             "Non-binary",
		"location":           "Austin, USA",
		"occupation":         "Marketing Manager",
		"education":          "Bachelor's Degree",
		"income":             "$70,000 - $90,000",
		"techExperience":     "Intermediate",
		"devices":            []interface{}{"Smartphone", "Laptop", "Tablet"},
		"hoursOnline":        30,
		"favoriteApps":       []interface{}{"Instagram", "Spotify", "Gmail"},
		"techChallenges":     []interface{}{"Remembering passwords", "Learning new interfaces"},
		"traits":             []interface{}{"Curious", "Practical", "Impatient"},
		"decisionStyle":      "Research-based, but time-conscious",
		"riskTolerance":      "Medium",
		"patienceLevel":      "Medium",
		"goals":              []interface{}{"Find information quickly", "Stay connected", "Be productive"},
		"motivations":        []interface{}{"Efficiency", "Social connection", "Professional growth"},
		"painPoints":         []interface{}{"Complex navigation", "Slow loading times", "Too many options"},
		"accessibilityNeeds": "None",
		"trustConcerns":      []interface{}{"Data privacy", "Unclear subscription terms"},
	}
}
