package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/dyike/ivy/internal/auth"
	"github.com/dyike/ivy/internal/models"
	"github.com/dyike/ivy/internal/service"
)

var errQuit = errors.New("quit")

// InteractiveSession drives the terminal app: account gate, onboarding,
// then the swipe loop.
type InteractiveSession struct {
	app *App
	ctx context.Context

	exhausted bool
}

func NewInteractiveSession(ctx context.Context, app *App) *InteractiveSession {
	return &InteractiveSession{app: app, ctx: ctx}
}

// Start runs until the user quits or interrupts a prompt.
func (s *InteractiveSession) Start() error {
	err := s.run()
	if errors.Is(err, errQuit) || errors.Is(err, terminal.InterruptErr) {
		fmt.Println()
		DisplayInfo("See you next time.")
		return nil
	}
	return err
}

func (s *InteractiveSession) run() error {
	ClearScreen()
	DisplayTitle("ivy · swipe to discover stocks")

	if err := s.authGate(); err != nil {
		return err
	}
	if !s.app.Profile.HasCompletedOnboarding() {
		if err := s.onboard(); err != nil {
			return err
		}
	}
	return s.swipeLoop()
}

// authGate requires a signed-in user when accounts are configured. Without
// a provider key the app runs in demo mode.
func (s *InteractiveSession) authGate() error {
	if !s.app.Auth.IsConfigured() {
		DisplaySetupRequired()
		return nil
	}
	for !s.app.Auth.IsAuthenticated() {
		action, err := PromptForAuthAction()
		if err != nil {
			return err
		}
		switch action {
		case "Sign in":
			err = s.signIn()
		case "Create account":
			err = s.signUp()
		case "Forgot password":
			err = s.forgotPassword()
		default:
			return errQuit
		}
		if errors.Is(err, terminal.InterruptErr) {
			return err
		}
		if err != nil {
			DisplayError(err)
		}
	}
	return nil
}

func (s *InteractiveSession) signIn() error {
	email, password, err := PromptForSignIn()
	if err != nil {
		return err
	}
	if err := s.app.Auth.Login(s.ctx, email, password); err != nil {
		return err
	}
	DisplaySuccess("Signed in as " + email)
	return nil
}

func (s *InteractiveSession) signUp() error {
	form, err := PromptForSignUp()
	if err != nil {
		return err
	}
	if err := s.app.Auth.Register(s.ctx, form.Email, form.Password, form.DisplayName()); err != nil {
		return err
	}
	DisplaySuccess("Account created. Check your inbox to verify " + form.Email + ".")
	return nil
}

func (s *InteractiveSession) forgotPassword() error {
	email, err := PromptForEmail()
	if err != nil {
		return err
	}
	if err := s.app.Auth.ResetPassword(s.ctx, email); err != nil {
		return err
	}
	DisplaySuccess("Password reset email sent to " + email)
	return nil
}

func (s *InteractiveSession) onboard() error {
	DisplayTitle("Tell us about your investing")
	for {
		p, err := PromptForProfile(s.app.Profile.Profile())
		if err != nil {
			return err
		}
		if err := s.app.Profile.CompleteOnboarding(p); err != nil {
			DisplayError(err)
			continue
		}
		DisplaySuccess("Profile saved.")
		return nil
	}
}

func (s *InteractiveSession) swipeLoop() error {
	for {
		recs := s.app.Discovery.Recommendations()
		st, err := s.app.Discovery.Stats(s.ctx)
		if err != nil {
			return err
		}

		ClearScreen()
		DisplayHeader(s.app.Auth.CurrentUser(), st)

		if len(recs) == 0 {
			if s.exhausted {
				DisplayInfo("No more unique stocks available. You've seen the whole pool.")
			} else {
				DisplayInfo("You're all caught up.")
			}
		} else {
			DisplayCard(recs[0])
		}

		choice, err := PromptForSwipe(!s.exhausted)
		if err != nil {
			return err
		}
		if err := s.handle(choice, recs); err != nil {
			if errors.Is(err, errQuit) || errors.Is(err, terminal.InterruptErr) {
				return err
			}
			DisplayError(err)
			pause()
		}
	}
}

func (s *InteractiveSession) handle(choice SwipeChoice, recs []*models.StockCandidate) error {
	switch choice {
	case ChoiceLike, ChoicePass:
		if len(recs) == 0 {
			return nil
		}
		if choice == ChoiceLike {
			return ignorePublish(s.app.Discovery.Like(s.ctx, recs[0].Symbol))
		}
		return ignorePublish(s.app.Discovery.Dislike(s.ctx, recs[0].Symbol))
	case ChoicePortfolio:
		return s.portfolio()
	case ChoiceProfile:
		return s.profile()
	case ChoiceGenerate:
		batch, err := s.app.Discovery.GenerateMore(s.ctx)
		if err := ignorePublish(err); err != nil {
			return err
		}
		if len(batch) == 0 {
			s.exhausted = true
			DisplayInfo("No more unique stocks available.")
			pause()
			return nil
		}
		DisplaySuccess(fmt.Sprintf("Added %d new stocks.", len(batch)))
		return nil
	case ChoiceAccount:
		return s.account()
	default:
		return errQuit
	}
}

func (s *InteractiveSession) portfolio() error {
	liked, err := s.app.Discovery.Portfolio(s.ctx)
	if err != nil {
		return err
	}
	ClearScreen()
	DisplayPortfolio(liked, time.Now())
	if len(liked) == 0 {
		pause()
		return nil
	}

	symbols := make([]string, 0, len(liked)+1)
	for _, c := range liked {
		symbols = append(symbols, c.Symbol)
	}
	symbols = append(symbols, "Back")
	choice, err := PromptForSymbol("Remove a stock from your portfolio?", symbols)
	if err != nil || choice == "Back" {
		return err
	}
	if err := ignorePublish(s.app.Discovery.Unlike(s.ctx, choice)); err != nil {
		return err
	}
	DisplaySuccess(choice + " removed from portfolio.")
	return nil
}

func (s *InteractiveSession) profile() error {
	ClearScreen()
	DisplayProfile(s.app.Profile.Profile(), s.app.Profile.HasCompletedOnboarding())
	edit, err := PromptForConfirmation("Edit your profile?")
	if err != nil || !edit {
		return err
	}
	p, err := PromptForProfile(s.app.Profile.Profile())
	if err != nil {
		return err
	}
	return s.app.Profile.Commit(p)
}

func (s *InteractiveSession) account() error {
	if !s.app.Auth.IsConfigured() {
		DisplayAccount(nil, false)
		pause()
		return nil
	}
	DisplayAccount(s.app.Auth.CurrentUser(), true)
	action, err := PromptForAccountAction()
	if err != nil {
		return err
	}
	switch action {
	case "Resend verification email":
		if err := s.app.Auth.SendEmailVerification(s.ctx); err != nil {
			return err
		}
		DisplaySuccess("Verification email sent.")
	case "Change display name":
		current := ""
		if u := s.app.Auth.CurrentUser(); u != nil {
			current = u.DisplayName
		}
		name, err := PromptForDisplayName(current)
		if err != nil {
			return err
		}
		return s.app.Auth.UpdateDisplayName(s.ctx, name)
	case "Sign out":
		if err := s.app.Auth.Logout(); err != nil {
			return err
		}
		return s.authGate()
	case "Delete account":
		ok, err := PromptForConfirmation("Delete your account permanently?")
		if err != nil || !ok {
			return err
		}
		if err := s.app.Auth.DeleteAccount(s.ctx); err != nil {
			if errors.Is(err, auth.ErrNoCurrentUser) {
				return s.authGate()
			}
			return err
		}
		DisplaySuccess("Account deleted.")
		return s.authGate()
	}
	return nil
}

// ignorePublish reports a lost event without failing the action: the swipe
// itself was persisted. Any other failure joined with it is returned.
func ignorePublish(err error) error {
	if service.PublishOnly(err) {
		log.Warn().Err(err).Msg("event not delivered")
		return nil
	}
	return err
}

func pause() {
	var ok bool
	_ = survey.AskOne(&survey.Confirm{Message: "Continue?", Default: true}, &ok)
}
