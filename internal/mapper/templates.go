package mapper

import "github.com/escapebudget/escape/internal/model"

// templates is the detection priority list. More specific signatures come
// first: "debit"/"credit" alone appears in at least four dialects, so the
// dialects that also carry a rarer keyword are listed above the plain
// debit/credit table.
var templates = []*Template{
	escapeTemplate,
	ynabTemplate,
	monarchTemplate,
	mintTemplate,
	appleCardTemplate,
	chaseTemplate,
	bankOfAmericaTemplate,
	discoverTemplate,
	amexTemplate,
	capitalOneTemplate,
	usaaTemplate,
	citiTemplate,
	allyTemplate,
	schwabTemplate,
	fidelityTemplate,
	venmoTemplate,
	paypalTemplate,
	revolutTemplate,
	wiseTemplate,
	monzoTemplate,
	starlingTemplate,
	n26Template,
	empowerTemplate,
	debitCreditTemplate,
}

// escapeTemplate re-imports the app's own ledger export, which round-trips
// every field including transfer bookkeeping.
var escapeTemplate = &Template{
	Name:      "escape",
	signature: []string{"kind", "transfer id"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"payee"}},
		{field: model.FieldAmount, exact: []string{"amount"}},
		{field: model.FieldMemo, exact: []string{"memo"}},
		{field: model.FieldCategory, exact: []string{"category"}},
		{field: model.FieldAccount, exact: []string{"account"}},
		{field: model.FieldTags, exact: []string{"tags"}},
		{field: model.FieldStatus, exact: []string{"status"}},
		{field: model.FieldKind, exact: []string{"kind"}},
		{field: model.FieldTransferID, exact: []string{"transfer id"}},
		{field: model.FieldExternalTransferLabel, part: []string{"external transfer"}},
		{field: model.FieldTransferInboxDismissed, part: []string{"inbox dismissed"}},
		{field: model.FieldPurchaseItems, part: []string{"purchase items"}},
	},
}

var ynabTemplate = &Template{
	Name:      "ynab",
	signature: []string{"outflow", "inflow", "cleared"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"payee"}},
		{field: model.FieldCategory, exact: []string{"category"}, part: []string{"category group/category"}},
		{field: model.FieldMemo, exact: []string{"memo"}},
		{field: model.FieldOutflow, exact: []string{"outflow"}},
		{field: model.FieldInflow, exact: []string{"inflow"}},
		{field: model.FieldStatus, exact: []string{"cleared"}},
		{field: model.FieldAccount, exact: []string{"account"}},
		{field: model.FieldSkip, exact: []string{"flag", "category group"}},
	},
}

var monarchTemplate = &Template{
	Name:      "monarch",
	signature: []string{"merchant", "original statement"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"merchant"}},
		{field: model.FieldCategory, exact: []string{"category"}},
		{field: model.FieldAccount, exact: []string{"account"}},
		{field: model.FieldMemo, exact: []string{"notes"}},
		{field: model.FieldTags, exact: []string{"tags"}},
		{field: model.FieldAmount, exact: []string{"amount"}},
		{field: model.FieldSkip, part: []string{"original statement"}},
	},
}

var mintTemplate = &Template{
	Name:      "mint",
	signature: []string{"original description", "transaction type"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"description"}},
		{field: model.FieldAmount, exact: []string{"amount"}},
		{field: model.FieldCategory, exact: []string{"category"}},
		{field: model.FieldAccount, exact: []string{"account name"}},
		{field: model.FieldTags, exact: []string{"labels"}},
		{field: model.FieldMemo, exact: []string{"notes"}},
		{field: model.FieldSkip, part: []string{"original description", "transaction type"}},
	},
}

var appleCardTemplate = &Template{
	Name:      "apple-card",
	signature: []string{"clearing date", "merchant"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"transaction date"}},
		{field: model.FieldPayee, exact: []string{"merchant"}},
		{field: model.FieldMemo, exact: []string{"description"}},
		{field: model.FieldCategory, exact: []string{"category"}},
		{field: model.FieldAmount, part: []string{"amount"}},
		{field: model.FieldSkip, exact: []string{"clearing date", "type", "purchased by"}},
	},
}

var chaseTemplate = &Template{
	Name:      "chase",
	signature: []string{"posting date", "check or slip"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"posting date"}},
		{field: model.FieldPayee, exact: []string{"description"}},
		{field: model.FieldAmount, exact: []string{"amount"}},
		{field: model.FieldSkip, exact: []string{"details", "type", "balance"}, part: []string{"check or slip"}},
	},
}

var bankOfAmericaTemplate = &Template{
	Name:      "bank-of-america",
	signature: []string{"posted date", "reference number"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"posted date"}},
		{field: model.FieldPayee, exact: []string{"payee", "description"}},
		{field: model.FieldAmount, exact: []string{"amount"}},
		{field: model.FieldSkip, part: []string{"reference number", "address", "running bal"}},
	},
}

var discoverTemplate = &Template{
	Name:      "discover",
	signature: []string{"trans. date", "post date"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"trans. date"}},
		{field: model.FieldPayee, exact: []string{"description"}},
		{field: model.FieldAmount, exact: []string{"amount"}},
		{field: model.FieldCategory, exact: []string{"category"}},
		{field: model.FieldSkip, exact: []string{"post date"}},
	},
}

var amexTemplate = &Template{
	Name:      "amex",
	signature: []string{"extended details", "appears on your statement as"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"description"}},
		{field: model.FieldAmount, exact: []string{"amount"}},
		{field: model.FieldMemo, part: []string{"extended details"}},
		{field: model.FieldCategory, exact: []string{"category"}},
		{field: model.FieldSkip, part: []string{"appears on your statement", "reference", "card member"}},
	},
}

var capitalOneTemplate = &Template{
	Name:      "capital-one",
	signature: []string{"transaction date", "posted date", "debit"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"transaction date"}},
		{field: model.FieldPayee, exact: []string{"description"}},
		{field: model.FieldCategory, exact: []string{"category"}},
		{field: model.FieldOutflow, exact: []string{"debit"}},
		{field: model.FieldInflow, exact: []string{"credit"}},
		{field: model.FieldSkip, exact: []string{"posted date"}, part: []string{"card no"}},
	},
}

var usaaTemplate = &Template{
	Name:      "usaa",
	signature: []string{"original description", "status"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"description"}},
		{field: model.FieldCategory, exact: []string{"category"}},
		{field: model.FieldAmount, exact: []string{"amount"}},
		{field: model.FieldStatus, exact: []string{"status"}},
		{field: model.FieldSkip, part: []string{"original description"}},
	},
}

var citiTemplate = &Template{
	Name:      "citi",
	signature: []string{"status", "debit", "credit"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"description"}},
		{field: model.FieldOutflow, exact: []string{"debit"}},
		{field: model.FieldInflow, exact: []string{"credit"}},
		{field: model.FieldStatus, exact: []string{"status"}},
		{field: model.FieldSkip, part: []string{"member name"}},
	},
}

var allyTemplate = &Template{
	Name:      "ally",
	signature: []string{"time", "amount", "description"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"description"}},
		{field: model.FieldAmount, exact: []string{"amount"}},
		{field: model.FieldSkip, exact: []string{"time", "type"}},
	},
}

var schwabTemplate = &Template{
	Name:      "schwab",
	signature: []string{"withdrawal", "deposit"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"description"}},
		{field: model.FieldOutflow, part: []string{"withdrawal"}},
		{field: model.FieldInflow, part: []string{"deposit"}},
		{field: model.FieldSkip, exact: []string{"type", "check #"}, part: []string{"runningbalance", "running balance"}},
	},
}

var fidelityTemplate = &Template{
	Name:      "fidelity",
	signature: []string{"run date", "action"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"run date"}},
		{field: model.FieldPayee, exact: []string{"action"}},
		{field: model.FieldAmount, part: []string{"amount"}},
		{field: model.FieldSkip, part: []string{"symbol", "quantity", "price", "commission", "settlement"}},
	},
}

var venmoTemplate = &Template{
	Name:      "venmo",
	signature: []string{"datetime", "note"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"datetime"}},
		{field: model.FieldPayee, exact: []string{"from"}},
		{field: model.FieldMemo, exact: []string{"note"}},
		{field: model.FieldAmount, part: []string{"amount (total)"}},
		{field: model.FieldSkip, exact: []string{"id", "type", "to", "status"}, part: []string{"amount (fee)", "funding source", "destination"}},
	},
}

var paypalTemplate = &Template{
	Name:      "paypal",
	signature: []string{"gross", "net"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"name"}},
		{field: model.FieldAmount, exact: []string{"net"}},
		{field: model.FieldStatus, exact: []string{"status"}},
		{field: model.FieldSkip, exact: []string{"gross", "fee", "currency", "time", "time zone", "type"}},
	},
}

var revolutTemplate = &Template{
	Name:      "revolut",
	signature: []string{"started date", "completed date"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"completed date"}},
		{field: model.FieldPayee, exact: []string{"description"}},
		{field: model.FieldAmount, exact: []string{"amount"}},
		{field: model.FieldStatus, exact: []string{"state"}},
		{field: model.FieldSkip, exact: []string{"type", "product", "started date", "fee", "currency", "balance"}},
	},
}

var wiseTemplate = &Template{
	Name:      "wise",
	signature: []string{"payment reference", "running balance"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, part: []string{"merchant"}},
		{field: model.FieldAmount, exact: []string{"amount"}},
		{field: model.FieldMemo, part: []string{"payment reference"}},
		{field: model.FieldSkip, part: []string{"running balance", "exchange", "currency", "id"}},
	},
}

var monzoTemplate = &Template{
	Name:      "monzo",
	signature: []string{"emoji"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"name"}},
		{field: model.FieldCategory, exact: []string{"category"}},
		{field: model.FieldAmount, exact: []string{"amount"}},
		{field: model.FieldTags, part: []string{"#tags"}},
		{field: model.FieldMemo, part: []string{"notes"}},
		{field: model.FieldSkip, exact: []string{"transaction id", "time", "type", "emoji", "currency"}},
	},
}

var starlingTemplate = &Template{
	Name:      "starling",
	signature: []string{"counter party"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"counter party"}},
		{field: model.FieldMemo, exact: []string{"reference"}},
		{field: model.FieldAmount, part: []string{"amount"}},
		{field: model.FieldSkip, exact: []string{"type"}, part: []string{"balance"}},
	},
}

var n26Template = &Template{
	Name:      "n26",
	signature: []string{"payee", "transaction type", "payment reference"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"payee"}},
		{field: model.FieldMemo, part: []string{"payment reference"}},
		{field: model.FieldAmount, part: []string{"amount (eur)"}},
		{field: model.FieldSkip, part: []string{"transaction type", "account number", "foreign"}},
	},
}

var empowerTemplate = &Template{
	Name:      "empower",
	signature: []string{"account", "description", "tags"},
	rules: []rule{
		{field: model.FieldDate, exact: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"description"}},
		{field: model.FieldCategory, exact: []string{"category"}},
		{field: model.FieldAccount, exact: []string{"account"}},
		{field: model.FieldTags, exact: []string{"tags"}},
		{field: model.FieldAmount, exact: []string{"amount"}},
	},
}

// debitCreditTemplate is the plain two-column bank table. It sits last in
// the priority list so the richer dialects using the same words win first.
var debitCreditTemplate = &Template{
	Name:      "debit-credit",
	signature: []string{"debit", "credit"},
	rules: []rule{
		{field: model.FieldDate, part: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"description", "payee", "narrative", "details"}},
		{field: model.FieldOutflow, part: []string{"debit"}},
		{field: model.FieldInflow, part: []string{"credit"}},
		{field: model.FieldSkip, part: []string{"balance"}},
	},
}

// Generic returns the heuristic template used when no signature matches.
func Generic() *Template {
	return genericTemplate
}

var genericTemplate = &Template{
	Name: "generic",
	rules: []rule{
		{field: model.FieldDate, part: []string{"date"}},
		{field: model.FieldPayee, exact: []string{"payee", "merchant", "name"}, part: []string{"description"}},
		{field: model.FieldOutflow, part: []string{"outflow", "debit", "withdrawal"}},
		{field: model.FieldInflow, part: []string{"inflow", "deposit"}},
		{field: model.FieldAmount, part: []string{"amount"}},
		{field: model.FieldCategory, part: []string{"category"}},
		{field: model.FieldAccount, part: []string{"account"}},
		{field: model.FieldTags, part: []string{"tags", "labels"}},
		{field: model.FieldStatus, part: []string{"status", "cleared"}},
		{field: model.FieldMemo, part: []string{"memo", "notes"}},
	},
}

// fallbackRules run after every template to fill a still-unmapped Payee or
// Account column. They never overwrite an existing mapping.
var fallbackRules = []rule{
	{field: model.FieldPayee, exact: []string{"payee", "merchant", "name"}, part: []string{"description"}},
	{field: model.FieldAccount, part: []string{"account"}},
}
