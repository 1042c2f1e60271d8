package utils

import (
	"math/rand"
	"os"
)

// IsProdEnv returns true iff the current runtime environment is production.
func IsProdEnv() bool {
	return os.Getenv("PAGESTREAM_ENV") == "prod"
}

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// ContainsString returns true iff the provided string slice hay contains string
// needle.
func ContainsString(hay []string, needle string) bool {
	for _, str := range hay {
		if str == needle {
			return true
		}
	}
	return false
}

// RandomAlphabetString returns a random lower-case string of the given length.
func RandomAlphabetString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

// UnionStrings returns base with every element of extra appended unless it is
// already present. Relative order of base is preserved.
func UnionStrings(base []string, extra []string) []string {
	res := append([]string{}, base...)
	for _, s := range extra {
		if !ContainsString(res, s) {
			res = append(res, s)
		}
	}
	return res
}

// DifferenceStrings returns the elements of base that are not in remove.
func DifferenceStrings(base []string, remove []string) []string {
	res := []string{}
	for _, s := range base {
		if !ContainsString(remove, s) {
			res = append(res, s)
		}
	}
	return res
}
