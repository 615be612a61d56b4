package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/ivy/internal/auth"
	"github.com/dyike/ivy/internal/models"
)

// Slider step for risk, amount and liquidity.
const sliderStep = 0.05

// SwipeChoice is one entry of the swipe menu.
type SwipeChoice string

const (
	ChoiceLike      SwipeChoice = "Like (add to portfolio)"
	ChoicePass      SwipeChoice = "Pass"
	ChoicePortfolio SwipeChoice = "View portfolio"
	ChoiceProfile   SwipeChoice = "Investment profile"
	ChoiceGenerate  SwipeChoice = "Generate more stocks"
	ChoiceAccount   SwipeChoice = "Account"
	ChoiceQuit      SwipeChoice = "Quit"
)

// parseSlider reads a value in [min, max] snapped to step.
func parseSlider(s string, min, max, step float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("enter a number between %g and %g", min, max)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("value must be between %g and %g", min, max)
	}
	snapped := math.Round(v/step) * step
	// Drop float noise past two decimals.
	snapped = math.Round(snapped*100) / 100
	return math.Min(math.Max(snapped, min), max), nil
}

func promptSlider(message, help string, current, min, max, step float64) (float64, error) {
	var answer string
	prompt := &survey.Input{
		Message: message,
		Help:    help,
		Default: strconv.FormatFloat(current, 'f', -1, 64),
	}
	err := survey.AskOne(prompt, &answer, survey.WithValidator(func(val interface{}) error {
		_, err := parseSlider(val.(string), min, max, step)
		return err
	}))
	if err != nil {
		return 0, err
	}
	return parseSlider(answer, min, max, step)
}

// PromptForProfile walks through the onboarding questions, starting from
// the current values.
func PromptForProfile(current models.InvestmentProfile) (models.InvestmentProfile, error) {
	var p models.InvestmentProfile
	var err error

	p.RiskTolerance, err = promptSlider(
		"Risk tolerance (0.1 = conservative, 1.0 = aggressive):",
		"How much volatility you are comfortable with, in steps of 0.05",
		current.RiskTolerance, models.MinRiskTolerance, models.MaxRiskTolerance, sliderStep)
	if err != nil {
		return p, err
	}

	p.InvestmentHorizon, err = promptSlider(
		"Investment horizon in years (1-30):",
		"How long you plan to hold your investments",
		current.InvestmentHorizon, models.MinHorizonYears, models.MaxHorizonYears, 1)
	if err != nil {
		return p, err
	}

	p.InvestmentAmount, err = promptSlider(
		"Investment amount (0.1 = $100K, 1.0 = $1M+):",
		"Relative size of the amount you plan to invest, in steps of 0.05",
		current.InvestmentAmount, models.MinAmount, models.MaxAmount, sliderStep)
	if err != nil {
		return p, err
	}

	p.LiquidityNeeds, err = promptSlider(
		"Liquidity needs (0.1 = low, 1.0 = high):",
		"How quickly you may need to access your money, in steps of 0.05",
		current.LiquidityNeeds, models.MinLiquidity, models.MaxLiquidity, sliderStep)
	if err != nil {
		return p, err
	}

	p.SelectedSectors, err = PromptForSectors(current.SelectedSectors)
	return p, err
}

func PromptForSectors(current []models.IndustrySector) ([]models.IndustrySector, error) {
	options := make([]string, len(models.AllSectors))
	for i, s := range models.AllSectors {
		options[i] = string(s)
	}
	defaults := make([]string, len(current))
	for i, s := range current {
		defaults[i] = string(s)
	}

	var selected []string
	prompt := &survey.MultiSelect{
		Message: "Which sectors interest you?",
		Options: options,
		Default: defaults,
		Help:    "Use space to select, enter to confirm. Leave empty for no preference.",
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return nil, err
	}

	out := make([]models.IndustrySector, len(selected))
	for i, s := range selected {
		out[i] = models.IndustrySector(s)
	}
	return out, nil
}

// PromptForSwipe shows the swipe menu for the card on screen.
func PromptForSwipe(canGenerate bool) (SwipeChoice, error) {
	options := []string{string(ChoiceLike), string(ChoicePass), string(ChoicePortfolio), string(ChoiceProfile)}
	if canGenerate {
		options = append(options, string(ChoiceGenerate))
	}
	options = append(options, string(ChoiceAccount), string(ChoiceQuit))

	var choice string
	prompt := &survey.Select{
		Message: "What do you think?",
		Options: options,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", err
	}
	return SwipeChoice(choice), nil
}

// PromptForSymbol asks for one of the given symbols.
func PromptForSymbol(message string, symbols []string) (string, error) {
	var choice string
	prompt := &survey.Select{
		Message: message,
		Options: symbols,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", err
	}
	return choice, nil
}

// PromptForSignIn asks for credentials and validates them locally first.
func PromptForSignIn() (email, password string, err error) {
	if email, err = promptEmail(); err != nil {
		return "", "", err
	}
	prompt := &survey.Password{Message: "Password:"}
	if err = survey.AskOne(prompt, &password, survey.WithValidator(survey.Required)); err != nil {
		return "", "", err
	}
	return email, password, auth.ValidateSignIn(email, password)
}

// PromptForSignUp fills the registration form. The password rules are
// shown before confirmation.
func PromptForSignUp() (auth.SignUpForm, error) {
	var f auth.SignUpForm
	questions := []*survey.Question{
		{Name: "FirstName", Prompt: &survey.Input{Message: "First name:"}, Validate: survey.Required},
		{Name: "LastName", Prompt: &survey.Input{Message: "Last name:"}, Validate: survey.Required},
	}
	if err := survey.Ask(questions, &f); err != nil {
		return f, err
	}

	var err error
	if f.Email, err = promptEmail(); err != nil {
		return f, err
	}

	pw := &survey.Password{
		Message: "Password:",
		Help:    fmt.Sprintf("At least %d characters", auth.MinPasswordLength),
	}
	if err := survey.AskOne(pw, &f.Password, survey.WithValidator(survey.MinLength(auth.MinPasswordLength))); err != nil {
		return f, err
	}
	if err := survey.AskOne(&survey.Password{Message: "Confirm password:"}, &f.ConfirmPassword); err != nil {
		return f, err
	}
	DisplayPasswordChecks(f.PasswordChecks())
	return f, auth.ValidateSignUp(f)
}

func PromptForEmail() (string, error) {
	return promptEmail()
}

func promptEmail() (string, error) {
	var email string
	prompt := &survey.Input{Message: "Email:"}
	err := survey.AskOne(prompt, &email, survey.WithValidator(func(val interface{}) error {
		return auth.ValidateEmail(val.(string))
	}))
	return strings.TrimSpace(email), err
}

func PromptForDisplayName(current string) (string, error) {
	var name string
	prompt := &survey.Input{Message: "Display name:", Default: current}
	if err := survey.AskOne(prompt, &name, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return strings.TrimSpace(name), nil
}

// PromptForAuthAction is the gate shown before discovery when signed out.
func PromptForAuthAction() (string, error) {
	var choice string
	prompt := &survey.Select{
		Message: "Welcome to ivy",
		Options: []string{"Sign in", "Create account", "Forgot password", "Quit"},
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", err
	}
	return choice, nil
}

// PromptForAccountAction lists what a signed-in user can do with the account.
func PromptForAccountAction() (string, error) {
	var choice string
	prompt := &survey.Select{
		Message: "Account",
		Options: []string{"Resend verification email", "Change display name", "Sign out", "Delete account", "Back"},
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", err
	}
	return choice, nil
}

func PromptForConfirmation(message string) (bool, error) {
	ok := false
	prompt := &survey.Confirm{Message: message, Default: false}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}
