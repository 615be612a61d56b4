package discovery

import "github.com/dyike/ivy/internal/models"

// ReferenceStock is one entry of the fixed mock universe the generator draws from.
type ReferenceStock struct {
	Symbol            string
	CompanyName       string
	Sector            models.IndustrySector
	BasePrice         float64
	BasePreviousClose float64
}

var referencePool = []ReferenceStock{
	{"OKLO", "Oklo Inc.", models.SectorUtilities, 71.49, 76.58},
	{"PLTR", "Palantir Technologies", models.SectorTechnology, 154.27, 158.37},
	{"NVDA", "NVIDIA Corporation", models.SectorTechnology, 173.72, 177.85},
	{"AMD", "Advanced Micro Devices", models.SectorTechnology, 171.70, 176.28},
	{"RBLX", "Roblox Corporation", models.SectorCommunication, 125.03, 137.73},
	{"COIN", "Coinbase Global", models.SectorFinancials, 314.69, 377.98},
	{"RIVN", "Rivian Automotive", models.SectorConsumerDiscretionary, 12.38, 12.87},
	{"SOFI", "SoFi Technologies", models.SectorFinancials, 21.23, 22.59},
	{"LCID", "Lucid Group", models.SectorConsumerDiscretionary, 2.42, 2.46},
	{"HOOD", "Robinhood Markets", models.SectorFinancials, 99.90, 103.06},
	{"NET", "Cloudflare Inc.", models.SectorTechnology, 200.11, 207.54},
	{"SHOP", "Shopify Inc.", models.SectorTechnology, 118.60, 122.21},
	{"TSLA", "Tesla Inc.", models.SectorConsumerDiscretionary, 342.05, 335.12},
	{"AAPL", "Apple Inc.", models.SectorTechnology, 234.20, 231.16},
	{"MSFT", "Microsoft Corporation", models.SectorTechnology, 445.78, 442.91},
	{"GOOGL", "Alphabet Inc.", models.SectorCommunication, 178.32, 175.68},
	{"META", "Meta Platforms", models.SectorCommunication, 478.65, 472.13},
	{"NFLX", "Netflix Inc.", models.SectorCommunication, 721.45, 715.22},
	{"UBER", "Uber Technologies", models.SectorIndustrials, 89.34, 87.52},
	{"SPOT", "Spotify Technology", models.SectorCommunication, 412.77, 408.93},
	{"SQ", "Block Inc.", models.SectorFinancials, 88.92, 85.74},
	{"PYPL", "PayPal Holdings", models.SectorFinancials, 78.45, 76.89},
	{"TWLO", "Twilio Inc.", models.SectorTechnology, 78.23, 76.11},
	{"DOCU", "DocuSign Inc.", models.SectorTechnology, 65.78, 63.45},
	{"ZM", "Zoom Video Communications", models.SectorTechnology, 89.12, 87.34},
	{"CRWD", "CrowdStrike Holdings", models.SectorTechnology, 378.56, 374.22},
	{"SNOW", "Snowflake Inc.", models.SectorTechnology, 112.89, 109.76},
	{"DDOG", "Datadog Inc.", models.SectorTechnology, 134.56, 131.87},
	{"MDB", "MongoDB Inc.", models.SectorTechnology, 298.45, 294.67},
	{"WDAY", "Workday Inc.", models.SectorTechnology, 234.78, 231.92},
}

// ReferencePool returns a copy of the built-in universe in declared order.
func ReferencePool() []ReferenceStock {
	out := make([]ReferenceStock, len(referencePool))
	copy(out, referencePool)
	return out
}

// ReferenceSymbols returns every symbol of the built-in universe.
func ReferenceSymbols() []string {
	out := make([]string, 0, len(referencePool))
	for _, r := range referencePool {
		out = append(out, r.Symbol)
	}
	return out
}
