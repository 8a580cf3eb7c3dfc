package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	minPasswordLen = 8
	symbols        = "!@#$%&*-_"
	upperLetters   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerLetters   = "abcdefghijkmnopqrstuvwxyz"
	digits         = "23456789"
)

// GenerateSecurePassword returns an n-character password (at least 8) with at
// least one uppercase, one lowercase, one digit and one symbol. Do not log the result.
func GenerateSecurePassword(n int) (string, error) {
	if n < minPasswordLen {
		n = minPasswordLen
	}
	randIndex := func(limit int) (int, error) {
		k, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
		if err != nil {
			return 0, err
		}
		return int(k.Int64()), nil
	}

	result := make([]byte, n)
	classes := []string{upperLetters, lowerLetters, digits, symbols}
	all := upperLetters + lowerLetters + digits + symbols
	for i := range result {
		set := all
		if i < len(classes) {
			set = classes[i]
		}
		k, err := randIndex(len(set))
		if err != nil {
			return "", err
		}
		result[i] = set[k]
	}
	for i := n - 1; i >= 1; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return "", fmt.Errorf("shuffle: %w", err)
		}
		result[i], result[j] = result[j], result[i]
	}
	return string(result), nil
}
