package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/ivy/internal/auth"
	"github.com/dyike/ivy/internal/models"
	"github.com/dyike/ivy/internal/search"
	"github.com/dyike/ivy/internal/service"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Background(lipgloss.Color("#1F2937")).
		Padding(0, 1).
		MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#3B82F6")).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(0, 2).
		Width(60)

	cardStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7C3AED")).
		Padding(1, 2).
		Width(60)

	panelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#F59E0B")).
		Padding(1, 2).
		Width(60)

	symbolStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#F9FAFB"))

	mutedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))

	gainStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	lossStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	scoreStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B"))

	completedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	infoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3B82F6"))
)

// ClearScreen clears the terminal screen
func ClearScreen() {
	fmt.Print("\033[2J\033[H")
}

func DisplayTitle(title string) {
	fmt.Println(titleStyle.Render(title))
}

// DisplayHeader shows the discovery header with the current counts.
func DisplayHeader(user *auth.User, st service.Stats) {
	name := "Guest"
	if user != nil {
		name = user.DisplayName
		if name == "" {
			name = user.Email
		}
	}
	header := fmt.Sprintf("ivy · %s\n%d to discover · %d liked · %d passed",
		name, st.Unviewed, st.Liked, st.Disliked)
	fmt.Println(headerStyle.Render(header))
}

// RenderCard renders one candidate the way it is presented for a swipe.
func RenderCard(c *models.StockCandidate) string {
	var b strings.Builder

	b.WriteString(symbolStyle.Render(c.Symbol))
	b.WriteString("  ")
	b.WriteString(c.CompanyName)
	b.WriteString("\n")
	if c.Sector != "" {
		b.WriteString(mutedStyle.Render(c.Sector))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	change := FormatChange(c)
	if c.IsGaining() {
		change = gainStyle.Render("▲ " + change)
	} else {
		change = lossStyle.Render("▼ " + change)
	}
	fmt.Fprintf(&b, "%s  %s\n", symbolStyle.Render(FormatPrice(c.CurrentPrice)), change)
	fmt.Fprintf(&b, "%s\n", mutedStyle.Render("Previous close "+FormatPrice(c.PreviousClose)))

	if c.MarketCap != nil {
		fmt.Fprintf(&b, "Market cap      %s\n", formatLarge(*c.MarketCap))
	}
	if c.PERatio != nil {
		fmt.Fprintf(&b, "P/E             %.2f\n", *c.PERatio)
	}
	if c.DividendYield != nil {
		fmt.Fprintf(&b, "Dividend yield  %.2f%%\n", *c.DividendYield)
	}
	if c.Volume != nil {
		fmt.Fprintf(&b, "Volume          %s\n", formatLarge(float64(*c.Volume)))
	}
	if c.CompanyDescription != "" {
		fmt.Fprintf(&b, "\n%s\n", c.CompanyDescription)
	}

	b.WriteString("\n")
	b.WriteString(scoreStyle.Render("Discovery score " + FormatScore(c.DiscoveryScore)))
	return cardStyle.Render(b.String())
}

func DisplayCard(c *models.StockCandidate) {
	fmt.Println(RenderCard(c))
}

// DisplayRecommendations prints a ranked list, one line per candidate.
func DisplayRecommendations(recs []*models.StockCandidate) {
	if len(recs) == 0 {
		DisplayInfo("No stocks left to discover. Generate more to continue.")
		return
	}
	for i, c := range recs {
		fmt.Printf("%2d. %-6s %-28s %10s  %s\n",
			i+1, c.Symbol, truncateString(c.CompanyName, 28), FormatPrice(c.CurrentPrice), scoreStyle.Render(FormatScore(c.DiscoveryScore)))
	}
}

// DisplayPortfolio prints liked stocks, most recent first.
func DisplayPortfolio(liked []*models.StockCandidate, now time.Time) {
	DisplayTitle(fmt.Sprintf("Portfolio (%d)", len(liked)))
	if len(liked) == 0 {
		fmt.Println(mutedStyle.Render("No liked stocks yet. Swipe right on a stock to add it here."))
		return
	}
	for _, c := range liked {
		when := ""
		if c.LikedAt != nil {
			when = TimeAgo(*c.LikedAt, now)
		}
		change := FormatChange(c)
		if c.IsGaining() {
			change = gainStyle.Render(change)
		} else {
			change = lossStyle.Render(change)
		}
		fmt.Printf("%-6s %-28s %10s  %s  %s\n",
			c.Symbol, truncateString(c.CompanyName, 28), FormatPrice(c.CurrentPrice), change, mutedStyle.Render(when))
	}
}

func DisplaySearchResults(hits []search.Hit) {
	if len(hits) == 0 {
		DisplayInfo("No matching stocks in the discovery pool.")
		return
	}
	for _, h := range hits {
		fmt.Printf("%-6s %-28s %s\n", h.Symbol, truncateString(h.Name, 28), mutedStyle.Render(h.Sector))
	}
}

// DisplayProfile renders the investment profile with its display labels.
func DisplayProfile(p models.InvestmentProfile, onboarded bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "Risk tolerance      %s\n", FormatPercent(p.RiskTolerance))
	fmt.Fprintf(&b, "Investment horizon  %s\n", FormatHorizon(p.InvestmentHorizon))
	fmt.Fprintf(&b, "Investment amount   %s\n", models.FormatInvestmentAmount(p.InvestmentAmount))
	fmt.Fprintf(&b, "Liquidity needs     %s\n", models.LiquidityLabel(p.LiquidityNeeds))

	sectors := "Any"
	if len(p.SelectedSectors) > 0 {
		names := make([]string, len(p.SelectedSectors))
		for i, s := range p.SelectedSectors {
			names[i] = string(s)
		}
		sectors = strings.Join(names, ", ")
	}
	fmt.Fprintf(&b, "Sectors             %s\n", sectors)

	status := errorStyle.Render("not completed")
	if onboarded {
		status = completedStyle.Render("completed")
	}
	fmt.Fprintf(&b, "\nOnboarding          %s", status)

	DisplayTitle("Investment Profile")
	fmt.Println(panelStyle.Render(b.String()))
}

// DisplaySetupRequired explains how to enable accounts when no identity
// provider key is configured.
func DisplaySetupRequired() {
	body := strings.Join([]string{
		symbolStyle.Render("Account setup required"),
		"",
		"Sign in is not configured on this machine.",
		"Set IVY_AUTH_API_KEY (and optionally IVY_AUTH_BASE_URL)",
		"in the environment or a .env file to enable accounts.",
		"",
		mutedStyle.Render("Continuing in demo mode."),
	}, "\n")
	fmt.Println(panelStyle.Render(body))
}

func DisplayAccount(user *auth.User, configured bool) {
	if !configured {
		DisplayInfo("Accounts are not configured (demo mode).")
		return
	}
	if user == nil {
		DisplayInfo("Not signed in.")
		return
	}
	verified := errorStyle.Render("unverified")
	if user.EmailVerified {
		verified = completedStyle.Render("verified")
	}
	fmt.Printf("Signed in as %s <%s> (%s)\n", user.DisplayName, user.Email, verified)
}

// DisplayPasswordChecks shows the live password rules of the sign-up form.
func DisplayPasswordChecks(checks []auth.Check) {
	for _, c := range checks {
		if c.OK {
			fmt.Println(completedStyle.Render("✓ " + c.Label))
		} else {
			fmt.Println(mutedStyle.Render("○ " + c.Label))
		}
	}
}

func DisplayError(err error) {
	fmt.Println(errorStyle.Render("Error: " + err.Error()))
}

func DisplayInfo(message string) {
	fmt.Println(infoStyle.Render(message))
}

func DisplaySuccess(message string) {
	fmt.Println(completedStyle.Render(message))
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}

func formatLarge(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
