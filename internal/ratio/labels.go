package ratio

// Candidate label lists for each economic concept, in priority order.
// The same concept appears under different labels across filers and
// fiscal-period formats, so every lookup tries a list of aliases and
// prefers the aggregate row where one exists.
var (
	labelsTotalAssets        = []string{"total assets"}
	labelsCurrentAssets      = []string{"total current assets", "current assets"}
	labelsCurrentLiabilities = []string{"total current liabilities", "current liabilities"}
	labelsTotalLiabilities   = []string{"total liabilities"}
	labelsEquity             = []string{"total stockholders' equity", "total shareholders' equity", "stockholders' equity", "total equity"}
	labelsCash               = []string{"cash and cash equivalents", "cash and due from banks", "cash"}
	labelsInventory          = []string{"inventories", "inventory"}
	labelsReceivables        = []string{"accounts receivable", "receivables"}
	labelsShortTermDebt      = []string{"short-term debt", "short-term borrowings", "current portion of long-term debt"}
	labelsLongTermDebt       = []string{"long-term debt"}
	labelsGoodwill           = []string{"goodwill"}

	labelsRevenue         = []string{"total revenue", "net revenue", "revenues", "revenue", "net sales"}
	labelsCOGS            = []string{"cost of revenue", "cost of goods sold", "cost of sales"}
	labelsGrossProfit     = []string{"gross profit"}
	labelsOperatingIncome = []string{"operating income", "income from operations"}
	labelsNetIncome       = []string{"net income", "net earnings"}

	labelsOperatingCashFlow = []string{"net cash provided by operating activities", "operating activities"}
	labelsCapex             = []string{"payments to acquire property", "capital expenditures", "purchases of property"}

	labelsNetInterestIncome = []string{"net interest income"}
	labelsNoninterestIncome = []string{"noninterest income", "non-interest income"}
	labelsNoninterestExp    = []string{"noninterest expense", "non-interest expense"}
	labelsLoans             = []string{"loans and leases, net", "net loans", "loans, net", "loans and leases"}
	labelsDeposits          = []string{"total deposits", "deposits"}
	labelsNonperforming     = []string{"nonaccrual", "non-performing", "nonperforming"}
	labelsAllowance         = []string{"allowance for credit losses", "allowance for loan"}
	labelsChargeOffs        = []string{"net charge-offs", "charge-offs"}
	labelsProvision         = []string{"provision for credit losses", "provision for loan"}
)
