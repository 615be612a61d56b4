package models

import (
	"fmt"
	"sort"
)

// IndustrySector identifies a sector a user can express interest in.
type IndustrySector string

const (
	SectorTechnology            IndustrySector = "Technology"
	SectorHealthcare            IndustrySector = "Healthcare"
	SectorFinancials            IndustrySector = "Financials"
	SectorConsumerDiscretionary IndustrySector = "Consumer Discretionary"
	SectorCommunication         IndustrySector = "Communication"
	SectorIndustrials           IndustrySector = "Industrials"
	SectorConsumerStaples       IndustrySector = "Consumer Staples"
	SectorEnergy                IndustrySector = "Energy"
	SectorUtilities             IndustrySector = "Utilities"
	SectorRealEstate            IndustrySector = "Real Estate"
	SectorMaterials             IndustrySector = "Materials"
)

// AllSectors lists every sector in display order.
var AllSectors = []IndustrySector{
	SectorTechnology,
	SectorHealthcare,
	SectorFinancials,
	SectorConsumerDiscretionary,
	SectorCommunication,
	SectorIndustrials,
	SectorConsumerStaples,
	SectorEnergy,
	SectorUtilities,
	SectorRealEstate,
	SectorMaterials,
}

func (s IndustrySector) Valid() bool {
	for _, known := range AllSectors {
		if s == known {
			return true
		}
	}
	return false
}

// Profile bounds.
const (
	MinRiskTolerance = 0.1
	MaxRiskTolerance = 1.0
	MinHorizonYears  = 1
	MaxHorizonYears  = 30
	MinAmount        = 0.1
	MaxAmount        = 1.0
	MinLiquidity     = 0.1
	MaxLiquidity     = 1.0
)

// InvestmentProfile is the user's preference vector.
type InvestmentProfile struct {
	RiskTolerance     float64          `json:"risk_tolerance"`
	InvestmentHorizon float64          `json:"investment_horizon"`
	InvestmentAmount  float64          `json:"investment_amount"`
	LiquidityNeeds    float64          `json:"liquidity_needs"`
	SelectedSectors   []IndustrySector `json:"selected_sectors"`
}

func DefaultProfile() InvestmentProfile {
	return InvestmentProfile{
		RiskTolerance:     0.5,
		InvestmentHorizon: 5,
		InvestmentAmount:  0.1,
		LiquidityNeeds:    0.5,
		SelectedSectors:   []IndustrySector{},
	}
}

func (p InvestmentProfile) Validate() error {
	if p.RiskTolerance < MinRiskTolerance || p.RiskTolerance > MaxRiskTolerance {
		return fmt.Errorf("risk tolerance %.2f outside [%.1f, %.1f]", p.RiskTolerance, MinRiskTolerance, MaxRiskTolerance)
	}
	if p.InvestmentHorizon < MinHorizonYears || p.InvestmentHorizon > MaxHorizonYears {
		return fmt.Errorf("investment horizon %.0f outside [%d, %d] years", p.InvestmentHorizon, MinHorizonYears, MaxHorizonYears)
	}
	if p.InvestmentAmount < MinAmount || p.InvestmentAmount > MaxAmount {
		return fmt.Errorf("investment amount %.2f outside [%.1f, %.1f]", p.InvestmentAmount, MinAmount, MaxAmount)
	}
	if p.LiquidityNeeds < MinLiquidity || p.LiquidityNeeds > MaxLiquidity {
		return fmt.Errorf("liquidity needs %.2f outside [%.1f, %.1f]", p.LiquidityNeeds, MinLiquidity, MaxLiquidity)
	}
	for _, s := range p.SelectedSectors {
		if !s.Valid() {
			return fmt.Errorf("unknown sector %q", s)
		}
	}
	return nil
}

// Normalized returns a copy whose sectors are de-duplicated and in
// AllSectors order, so the set compares equal regardless of input order.
func (p InvestmentProfile) Normalized() InvestmentProfile {
	seen := make(map[IndustrySector]struct{}, len(p.SelectedSectors))
	sectors := make([]IndustrySector, 0, len(p.SelectedSectors))
	for _, s := range p.SelectedSectors {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		sectors = append(sectors, s)
	}
	sort.SliceStable(sectors, func(i, j int) bool {
		return sectorIndex(sectors[i]) < sectorIndex(sectors[j])
	})
	p.SelectedSectors = sectors
	return p
}

func (p InvestmentProfile) HasSector(s IndustrySector) bool {
	for _, sel := range p.SelectedSectors {
		if sel == s {
			return true
		}
	}
	return false
}

func sectorIndex(s IndustrySector) int {
	for i, known := range AllSectors {
		if s == known {
			return i
		}
	}
	return len(AllSectors)
}

// FormatInvestmentAmount renders a normalized amount as thousands, capping at "1M+".
func FormatInvestmentAmount(amount float64) string {
	value := int(amount * 1000)
	if value >= 1000 {
		return "1M+"
	}
	return fmt.Sprintf("%dK", value)
}

func LiquidityLabel(value float64) string {
	switch {
	case value < 0.4:
		return "Low"
	case value < 0.7:
		return "Medium"
	default:
		return "High"
	}
}
