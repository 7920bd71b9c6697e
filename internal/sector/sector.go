// Package sector classifies an issuer into the industry bucket that
// gates sector-specific ratio computation.
package sector

import "strings"

// Sector is an industry classification.
type Sector string

const (
	SectorBanking           Sector = "banking"
	SectorInvestmentBanking Sector = "investment_banking"
	SectorInsurance         Sector = "insurance"
	SectorREIT              Sector = "reit"
	SectorGeneral           Sector = "general"
)

// Static membership tables for well-known issuers. Precise but
// incomplete; the SIC-code fallback covers the rest.
var (
	commercialBanks = map[string]bool{
		"JPM": true, "BAC": true, "WFC": true, "C": true, "USB": true,
		"PNC": true, "TFC": true, "COF": true, "FITB": true, "KEY": true,
		"RF": true, "CFG": true, "MTB": true, "HBAN": true, "ZION": true,
		"CMA": true, "ALLY": true, "FRC": true, "SIVB": true, "WAL": true,
	}
	investmentBanks = map[string]bool{
		"GS": true, "MS": true, "SCHW": true, "RJF": true, "LAZ": true,
		"EVR": true, "PJT": true, "HLI": true, "JEF": true,
		"BLK": true, "BX": true, "KKR": true, "APO": true, "CG": true,
		"TROW": true, "BEN": true, "IVZ": true, "AMP": true, "SF": true,
	}
	insurers = map[string]bool{
		"AIG": true, "MET": true, "PRU": true, "ALL": true, "TRV": true,
		"CB": true, "PGR": true, "AFL": true, "HIG": true, "LNC": true,
		"PFG": true, "GL": true, "CINF": true, "WRB": true, "RE": true,
		"MMC": true, "AON": true, "AJG": true, "BRO": true,
	}
	reits = map[string]bool{
		"AMT": true, "PLD": true, "CCI": true, "EQIX": true, "PSA": true,
		"SPG": true, "O": true, "WELL": true, "DLR": true, "AVB": true,
		"EQR": true, "VTR": true, "ARE": true, "MAA": true, "UDR": true,
		"ESS": true, "KIM": true, "REG": true, "FRT": true, "BXP": true,
	}
)

// Classify maps an issuer to a sector. The static tables are checked
// first; when the ticker is unrecognized, the SIC industry code is the
// coarser fallback; otherwise SectorGeneral.
func Classify(ticker string, sic *int) Sector {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	switch {
	case commercialBanks[t]:
		return SectorBanking
	case investmentBanks[t]:
		return SectorInvestmentBanking
	case insurers[t]:
		return SectorInsurance
	case reits[t]:
		return SectorREIT
	}

	if sic != nil {
		return classifySIC(*sic)
	}
	return SectorGeneral
}

func classifySIC(code int) Sector {
	switch {
	case code >= 6020 && code <= 6199:
		// Depository institutions and related functions.
		return SectorBanking
	case code >= 6200 && code <= 6299, code == 6770:
		// Security brokers, dealers, exchanges.
		return SectorInvestmentBanking
	case code >= 6300 && code <= 6499:
		// Insurance carriers, agents, brokers.
		return SectorInsurance
	case code == 6798:
		return SectorREIT
	default:
		return SectorGeneral
	}
}

// BankingRatios reports whether the banking ratio extension applies.
// Investment banks carry enough lending-book structure that the same
// extension is computed for them.
func BankingRatios(s Sector) bool {
	return s == SectorBanking || s == SectorInvestmentBanking
}
