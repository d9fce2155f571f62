package statement

// amountMode determines how amounts are extracted from a row.
type amountMode int

const (
	// amountSingle is one signed column, e.g. "Valor" with "-10,00" or "10,00 D".
	amountSingle amountMode = iota
	// amountSplit is separate debit and credit columns.
	amountSplit
)

// Profile describes a statement column layout. Column names are matched after folding
// (case, accents and a trailing "(R$)" are ignored), against any of the listed aliases.
type Profile struct {
	Name       string
	Date       []string
	Desc       []string
	AmountMode amountMode
	Amount     []string
	Debit      []string
	Credit     []string
}

var (
	dateCols = []string{"data", "data lancamento", "data mov.", "data movimento"}
	descCols = []string{"historico", "descricao", "lancamento"}
)

// profiles is tried in order; layouts with more required columns come first.
var profiles = []Profile{
	{
		Name:       "debito-credito",
		Date:       dateCols,
		Desc:       descCols,
		AmountMode: amountSplit,
		Debit:      []string{"debito", "saida", "saidas"},
		Credit:     []string{"credito", "entrada", "entradas"},
	},
	{
		Name:       "valor",
		Date:       dateCols,
		Desc:       descCols,
		AmountMode: amountSingle,
		Amount:     []string{"valor", "montante", "movimento"},
	},
}

func (p *Profile) groups() [][]string {
	groups := [][]string{p.Date, p.Desc}

	switch p.AmountMode {
	case amountSingle:
		groups = append(groups, p.Amount)
	case amountSplit:
		groups = append(groups, p.Debit, p.Credit)
	}

	return groups
}
