package transform

// XOR is self-inverse: encoding and decoding both XOR every byte with
// 0xFF (§4.4).
func applyXOR(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	for i, b := range input {
		out[i] = b ^ 0xFF
	}
	return out, nil
}
