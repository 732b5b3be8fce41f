package core

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical entry categories.
const (
	CategoryDizimo   = "Dízimo"
	CategoryOferta   = "Oferta"
	CategoryCampanha = "Campanha"
	CategoryDoacao   = "Doação"
	CategoryOutros   = "Outros"
)

// Canonical payment methods.
const (
	PaymentDinheiro      = "Dinheiro"
	PaymentCartao        = "Cartão"
	PaymentPix           = "PIX"
	PaymentTransferencia = "Transferência"
	PaymentBoleto        = "Boleto"
	PaymentOutros        = "Outros"
)

// EntryCategories returns the canonical entry vocabulary.
func EntryCategories() []string {
	return []string{CategoryDizimo, CategoryOferta, CategoryCampanha, CategoryDoacao, CategoryOutros}
}

// PaymentMethods returns the canonical payment method vocabulary.
func PaymentMethods() []string {
	return []string{PaymentDinheiro, PaymentCartao, PaymentPix, PaymentTransferencia, PaymentBoleto, PaymentOutros}
}

// ExpenseTaxonomy maps each main expense category to its fixed
// subcategories.
func ExpenseTaxonomy() map[string][]string {
	return map[string][]string{
		"Administrativo": {"Água", "Luz", "Aluguel", "Internet", "Telefone", "Material de Escritório", "Manutenção", "Limpeza", "Segurança"},
		"Pessoal":        {"Salários", "Prebenda Pastoral", "Ajuda de Custo", "Encargos"},
		"Ministérios":    {"Eventos", "Missões", "Ação Social", "Louvor", "Escola Bíblica"},
		"Patrimônio":     {"Construção", "Reforma", "Equipamentos", "Instrumentos"},
		"Outros":         {"Outras Despesas"},
	}
}

// canonical maps case- and diacritic-folded spellings to the one
// canonical spelling per concept. Extra keys cover legacy spellings
// found in historical data.
var canonical = buildCanonicalIndex()

func buildCanonicalIndex() map[string]string {
	idx := make(map[string]string)
	add := func(alias, canon string) { idx[foldKey(alias)] = canon }

	for _, c := range EntryCategories() {
		add(c, c)
	}
	for _, m := range PaymentMethods() {
		add(m, m)
	}
	for main, subs := range ExpenseTaxonomy() {
		add(main, main)
		for _, s := range subs {
			add(s, s)
		}
	}

	// Legacy spellings.
	add("dizimos", CategoryDizimo)
	add("ofertas", CategoryOferta)
	add("doacoes", CategoryDoacao)
	add("cartao de credito", PaymentCartao)
	add("cartao de debito", PaymentCartao)
	add("transferencia bancaria", PaymentTransferencia)
	add("ajuda social", "Ação Social")
	add("salario", "Salários")

	return idx
}

// Normalize maps known case/diacritic variants of categories and
// payment methods to their canonical spelling. Unknown input gets its
// first letter uppercased and is otherwise returned unchanged. That
// fallback is lossy best effort, not enum coercion: callers must not
// assume the result belongs to the canonical vocabulary.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if canon, ok := canonical[foldKey(s)]; ok {
		return canon
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// foldKey lowercases and strips combining marks so that "Dízimo",
// "dizimo" and "DIZIMO" collapse to one lookup key.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
