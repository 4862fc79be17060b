package utils

// ValidatePincode checks if a string is a valid 6-digit postal PIN code.
func ValidatePincode(pincode string) bool {
	if len(pincode) != 6 {
		return false
	}

	// The first digit of a postal PIN is never zero.
	if pincode[0] == '0' {
		return false
	}

	// Check if all characters are digits
	for _, char := range pincode {
		if char < '0' || char > '9' {
			return false
		}
	}

	return true
}
