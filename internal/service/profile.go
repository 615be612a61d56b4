package service

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dyike/ivy/internal/kv"
	"github.com/dyike/ivy/internal/models"
	"github.com/dyike/ivy/internal/notify"
)

const (
	keyProfile    = "investment_profile"
	keyOnboarding = "has_completed_onboarding"
)

// Preferences is the slice of kv.Store the profile service needs.
type Preferences interface {
	GetBool(bucket, key string) (bool, error)
	PutBool(bucket, key string, value bool) error
	GetJSON(bucket, key string, dst any) error
	PutJSON(bucket, key string, value any) error
}

// ProfileState is what subscribers receive on every change.
type ProfileState struct {
	Profile                models.InvestmentProfile
	HasCompletedOnboarding bool
}

// ProfileService holds the investment profile and the onboarding flag. Both
// are persisted as separate values; the profile is always replaced as a
// whole.
type ProfileService struct {
	prefs Preferences

	mu        sync.RWMutex
	profile   models.InvestmentProfile
	onboarded bool

	subs notify.Registry[ProfileState]
}

// NewProfileService loads persisted state. A missing or invalid stored
// profile falls back to defaults.
func NewProfileService(prefs Preferences) (*ProfileService, error) {
	s := &ProfileService{prefs: prefs, profile: models.DefaultProfile()}

	var stored models.InvestmentProfile
	err := prefs.GetJSON(kv.BucketPreferences, keyProfile, &stored)
	switch {
	case errors.Is(err, kv.ErrNotFound):
	case err != nil:
		log.Warn().Err(err).Msg("stored profile unreadable, using defaults")
	case stored.Validate() != nil:
		log.Warn().Err(stored.Validate()).Msg("stored profile invalid, using defaults")
	default:
		s.profile = stored.Normalized()
	}

	onboarded, err := prefs.GetBool(kv.BucketPreferences, keyOnboarding)
	if err != nil {
		return nil, fmt.Errorf("load onboarding flag: %w", err)
	}
	s.onboarded = onboarded
	return s, nil
}

// Profile returns a copy of the current profile.
func (s *ProfileService) Profile() models.InvestmentProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyProfile(s.profile)
}

func (s *ProfileService) HasCompletedOnboarding() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.onboarded
}

// Commit validates p and replaces all five profile fields at once. On
// error nothing changes.
func (s *ProfileService) Commit(p models.InvestmentProfile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	p = p.Normalized()

	s.mu.Lock()
	if err := s.prefs.PutJSON(kv.BucketPreferences, keyProfile, p); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist profile: %w", err)
	}
	s.profile = p
	state := s.stateLocked()
	s.mu.Unlock()

	log.Debug().Float64("risk", p.RiskTolerance).Int("sectors", len(p.SelectedSectors)).Msg("profile committed")
	s.subs.Notify(state)
	return nil
}

// CompleteOnboarding commits the profile and sets the onboarding flag.
func (s *ProfileService) CompleteOnboarding(p models.InvestmentProfile) error {
	if err := s.Commit(p); err != nil {
		return err
	}
	return s.SetOnboardingCompleted(true)
}

func (s *ProfileService) SetOnboardingCompleted(done bool) error {
	s.mu.Lock()
	if err := s.prefs.PutBool(kv.BucketPreferences, keyOnboarding, done); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist onboarding flag: %w", err)
	}
	s.onboarded = done
	state := s.stateLocked()
	s.mu.Unlock()

	log.Debug().Bool("completed", done).Msg("onboarding flag set")
	s.subs.Notify(state)
	return nil
}

// Reset restores default preferences and clears the onboarding flag. If the
// flag cannot be written the stored profile is rolled back and nothing
// changes in memory.
func (s *ProfileService) Reset() error {
	def := models.DefaultProfile()

	s.mu.Lock()
	prev := s.profile
	if err := s.prefs.PutJSON(kv.BucketPreferences, keyProfile, def); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist profile: %w", err)
	}
	if err := s.prefs.PutBool(kv.BucketPreferences, keyOnboarding, false); err != nil {
		if rbErr := s.prefs.PutJSON(kv.BucketPreferences, keyProfile, prev); rbErr != nil {
			log.Error().Err(rbErr).Msg("roll back profile after failed reset")
		}
		s.mu.Unlock()
		return fmt.Errorf("persist onboarding flag: %w", err)
	}
	s.profile = def
	s.onboarded = false
	state := s.stateLocked()
	s.mu.Unlock()

	log.Info().Msg("profile reset")
	s.subs.Notify(state)
	return nil
}

// Subscribe registers fn for profile and onboarding changes.
func (s *ProfileService) Subscribe(fn func(ProfileState)) func() {
	return s.subs.Add(fn)
}

func (s *ProfileService) stateLocked() ProfileState {
	return ProfileState{Profile: copyProfile(s.profile), HasCompletedOnboarding: s.onboarded}
}

func copyProfile(p models.InvestmentProfile) models.InvestmentProfile {
	p.SelectedSectors = append([]models.IndustrySector{}, p.SelectedSectors...)
	return p
}
