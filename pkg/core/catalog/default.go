package catalog

// Standardized metric names.
const (
	TotalRevenue            = "Total Revenue"
	CostOfRevenue           = "Cost Of Revenue"
	GrossProfit             = "Gross Profit"
	OperatingIncome         = "Operating Income"
	OperatingExpense        = "Operating Expense"
	NetIncome               = "Net Income"
	EBITDA                  = "EBITDA"
	EBIT                    = "EBIT"
	InterestExpense         = "Interest Expense"
	TaxProvision            = "Tax Provision"
	PretaxIncome            = "Pretax Income"
	DepreciationAmort       = "Depreciation And Amortization"
	DilutedEPS              = "Diluted EPS"
	TaxRateForCalcs         = "Tax Rate For Calcs"
	TotalAssets             = "Total Assets"
	CurrentAssets           = "Current Assets"
	CurrentLiabilities      = "Current Liabilities"
	Inventory               = "Inventory"
	AccountsReceivable      = "Accounts Receivable"
	StockholdersEquity      = "Stockholders Equity"
	TotalLiabilities        = "Total Liabilities"
	TotalDebt               = "Total Debt"
	ShortTermDebt           = "Short Term Debt"
	LongTermDebt            = "Long Term Debt"
	CashAndEquivalents      = "Cash And Cash Equivalents"
	NetPPE                  = "Net PPE"
	GrossPPE                = "Gross PPE"
	AccumulatedDepreciation = "Accumulated Depreciation"
)

func add(operands ...string) *Derivation {
	return &Derivation{Operator: Add, Operands: operands}
}

func subtract(operands ...string) *Derivation {
	return &Derivation{Operator: Subtract, Operands: operands}
}

// Aliases list the Yahoo-style line item first, then the EODHD fundamentals
// field name. Order is precedence.
var defaultDefinitions = []Definition{
	// Income statement
	{Name: TotalRevenue, Statement: Income, Aliases: []string{"Total Revenue", "Operating Revenue", "totalRevenue"}},
	{Name: CostOfRevenue, Statement: Income, Aliases: []string{"Cost Of Revenue", "Cost Of Goods Sold", "costOfRevenue"}},
	{Name: GrossProfit, Statement: Income, Aliases: []string{"Gross Profit", "grossProfit"},
		Derivation: subtract(TotalRevenue, CostOfRevenue)},
	{Name: OperatingIncome, Statement: Income, Aliases: []string{"Operating Income", "Total Operating Income As Reported", "operatingIncome"},
		Derivation: subtract(GrossProfit, OperatingExpense)},
	{Name: OperatingExpense, Statement: Income, Aliases: []string{"Operating Expense", "totalOperatingExpenses"}},
	{Name: NetIncome, Statement: Income, Aliases: []string{"Net Income", "Net Income Common Stockholders", "netIncome"}},
	{Name: EBITDA, Statement: Income, Aliases: []string{"EBITDA", "Normalized EBITDA", "ebitda"},
		Derivation: add(EBIT, DepreciationAmort)},
	{Name: EBIT, Statement: Income, Aliases: []string{"EBIT", "ebit"},
		Derivation: add(NetIncome, InterestExpense, TaxProvision)},
	{Name: InterestExpense, Statement: Income, Aliases: []string{"Interest Expense", "interestExpense"}},
	{Name: TaxProvision, Statement: Income, Aliases: []string{"Tax Provision", "Income Tax Expense", "incomeTaxExpense"},
		Derivation: subtract(PretaxIncome, NetIncome)},
	{Name: PretaxIncome, Statement: Income, Aliases: []string{"Pretax Income", "Income Before Tax", "incomeBeforeTax"},
		Derivation: subtract(EBIT, InterestExpense)},
	{Name: DepreciationAmort, Statement: Income, Aliases: []string{"Depreciation And Amortization", "Reconciled Depreciation", "depreciationAndAmortization", "reconciledDepreciation"}},
	{Name: DilutedEPS, Statement: Income, Aliases: []string{"Diluted EPS", "Basic EPS", "dilutedEPS", "basicEPS"}},
	{Name: TaxRateForCalcs, Statement: Income, Aliases: []string{"Tax Rate For Calcs"}},

	// Balance sheet
	{Name: TotalAssets, Statement: Balance, Aliases: []string{"Total Assets", "totalAssets"},
		Derivation: add(TotalLiabilities, StockholdersEquity)},
	{Name: CurrentAssets, Statement: Balance, Aliases: []string{"Current Assets", "totalCurrentAssets"}},
	{Name: CurrentLiabilities, Statement: Balance, Aliases: []string{"Current Liabilities", "totalCurrentLiabilities"}},
	{Name: Inventory, Statement: Balance, Aliases: []string{"Inventory", "inventory"}},
	{Name: AccountsReceivable, Statement: Balance, Aliases: []string{"Accounts Receivable", "Receivables", "netReceivables"}},
	{Name: StockholdersEquity, Statement: Balance, Aliases: []string{"Stockholders Equity", "Common Stock Equity", "Total Stockholder Equity", "totalStockholderEquity"},
		Derivation: subtract(TotalAssets, TotalLiabilities)},
	{Name: TotalLiabilities, Statement: Balance, Aliases: []string{"Total Liabilities", "totalLiab"}},
	{Name: TotalDebt, Statement: Balance, Aliases: []string{"Total Debt", "shortLongTermDebtTotal"},
		Derivation: add(ShortTermDebt, LongTermDebt)},
	{Name: ShortTermDebt, Statement: Balance, Aliases: []string{
		"Short Term Debt",
		"Current Debt",
		"Current Debt And Capital Lease Obligation",
		"Other Current Borrowings",
		"Commercial Paper",
		"shortTermDebt",
	}},
	{Name: LongTermDebt, Statement: Balance, Aliases: []string{"Long Term Debt", "longTermDebt"}},
	{Name: CashAndEquivalents, Statement: Balance, Aliases: []string{"Cash And Cash Equivalents", "Cash", "cashAndEquivalents", "cash"}},
	{Name: NetPPE, Statement: Balance, Aliases: []string{"Net PPE", "propertyPlantAndEquipmentNet"},
		Derivation: subtract(GrossPPE, AccumulatedDepreciation)},
	{Name: GrossPPE, Statement: Balance, Aliases: []string{"Gross PPE", "propertyPlantAndEquipmentGross"}},
	{Name: AccumulatedDepreciation, Statement: Balance, Aliases: []string{"Accumulated Depreciation", "accumulatedDepreciation"}},
}

var defaultCatalog = MustNew(defaultDefinitions...)

// Default returns the shipped catalog. Its derivation graph contains two
// cycles (EBIT, Tax Provision, Pretax Income and Total Assets, Stockholders
// Equity); each is broken at resolution time whenever one member is reported
// directly.
func Default() *Catalog { return defaultCatalog }
