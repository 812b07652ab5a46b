package utils

import (
	"math/rand"
	"strconv"
)

// StringToInt converts string to int, returns 0 if error
func StringToInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

const codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomCode returns a short lowercase code, used to disambiguate slugs.
func RandomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
