package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	cnpjFormat = regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`)
	cpfFormat  = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`)
	digitsOnly = regexp.MustCompile(`^\d+$`)
)

var (
	cnpjFirstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjSecondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Digits strips every non-digit rune from s.
func Digits(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// ValidCNPJ reports whether s carries a CNPJ with correct check digits. Punctuation is ignored.
func ValidCNPJ(s string) bool {
	d := Digits(s)
	if len(d) != 14 || repeated(d) {
		return false
	}

	first := cnpjCheckDigit(d[:12], cnpjFirstWeights)
	second := cnpjCheckDigit(d[:12]+string(rune('0'+first)), cnpjSecondWeights)

	return int(d[12]-'0') == first && int(d[13]-'0') == second
}

func cnpjCheckDigit(digits string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}

	if r := sum % 11; r >= 2 {
		return 11 - r
	}

	return 0
}

// ValidCPF reports whether s carries a CPF with correct check digits. Punctuation is ignored.
func ValidCPF(s string) bool {
	d := Digits(s)
	if len(d) != 11 || repeated(d) {
		return false
	}

	first := cpfCheckDigit(d[:9])
	second := cpfCheckDigit(d[:10])

	return int(d[9]-'0') == first && int(d[10]-'0') == second
}

// cpfCheckDigit weighs digits from len+1 down to 2.
func cpfCheckDigit(digits string) int {
	sum := 0
	weight := len(digits) + 1

	for i := range len(digits) {
		sum += int(digits[i]-'0') * (weight - i)
	}

	d := (sum * 10) % 11
	if d == 10 || d == 11 {
		return 0
	}

	return d
}

func repeated(d string) bool {
	return strings.Count(d, d[:1]) == len(d)
}

// FormatCNPJ renders 14 digits as NN.NNN.NNN/NNNN-NN.
func FormatCNPJ(s string) (string, error) {
	d := Digits(s)
	if len(d) != 14 {
		return "", fmt.Errorf("cnpj must have 14 digits, got %d", len(d))
	}

	return fmt.Sprintf("%s.%s.%s/%s-%s", d[0:2], d[2:5], d[5:8], d[8:12], d[12:14]), nil
}

// FormatCPF renders 11 digits as NNN.NNN.NNN-NN.
func FormatCPF(s string) (string, error) {
	d := Digits(s)
	if len(d) != 11 {
		return "", fmt.Errorf("cpf must have 11 digits, got %d", len(d))
	}

	return fmt.Sprintf("%s.%s.%s-%s", d[0:3], d[3:6], d[6:9], d[9:11]), nil
}

// isFormattedCNPJ accepts the company register form: punctuated and checksum-valid.
func isFormattedCNPJ(s string) bool {
	return cnpjFormat.MatchString(s) && ValidCNPJ(s)
}

// isCNPJOrCPF accepts a punctuated CNPJ, or a CPF either as 11 bare digits or punctuated.
func isCNPJOrCPF(s string) bool {
	switch {
	case cnpjFormat.MatchString(s):
		return ValidCNPJ(s)
	case cpfFormat.MatchString(s), digitsOnly.MatchString(s) && len(s) == 11:
		return ValidCPF(s)
	default:
		return false
	}
}
