// Package account generates Norwegian bank account numbers and their
// matching IBANs.
//
// An account number is 11 digits where the last digit is a mod-11 checksum
// over the first 10, weighted 2,3,4,5,6,7,2,3,4,5. A remainder that would
// need check digit 10 makes the number invalid, so generation retries.
// The IBAN is "NO" + two mod-97 check digits + the account number.
package account

import "math/rand"

var checksumWeights = [10]int{2, 3, 4, 5, 6, 7, 2, 3, 4, 5}

// GenerateNumber returns a random valid 11-digit account number.
func GenerateNumber() string {
	for {
		digits := make([]byte, 0, 11)
		sum := 0
		for i := 0; i < 10; i++ {
			d := rand.Intn(10)
			digits = append(digits, byte('0'+d))
			sum += d * checksumWeights[i]
		}
		check := 11 - sum%11
		if check == 11 {
			check = 0
		}
		if check == 10 {
			continue
		}
		digits = append(digits, byte('0'+check))
		return string(digits)
	}
}

// ValidNumber reports whether s is an 11-digit account number with a
// correct check digit.
func ValidNumber(s string) bool {
	if len(s) != 11 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		d := int(s[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		sum += d * checksumWeights[i]
	}
	last := int(s[10] - '0')
	if last < 0 || last > 9 {
		return false
	}
	check := 11 - sum%11
	if check == 11 {
		check = 0
	}
	return check == last
}

// mod97 computes numberStr mod 97 digit by digit, avoiding overflow on the
// 17-digit rearranged IBAN string.
func mod97(numberStr string) int {
	remainder := 0
	for i := 0; i < len(numberStr); i++ {
		remainder = (remainder*10 + int(numberStr[i]-'0')) % 97
	}
	return remainder
}

// GenerateIBAN derives the Norwegian IBAN for an 11-digit account number.
// The check digits come from the rearranged string accountNumber+"232400"
// ("23" and "24" encode the letters N and O, "00" stands in for the check
// digits themselves).
func GenerateIBAN(number string) string {
	check := 98 - mod97(number+"232400")
	if check < 10 {
		return "NO0" + string(byte('0'+check)) + number
	}
	return "NO" + string(byte('0'+check/10)) + string(byte('0'+check%10)) + number
}

// Generate returns a fresh account number and its IBAN.
func Generate() (number, iban string) {
	number = GenerateNumber()
	return number, GenerateIBAN(number)
}
