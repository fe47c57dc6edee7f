package sm2

import (
	"github.com/TheusHen/SM2/sm2/ec"
)

// Ciphertext is the decoded form of C1 ‖ C3 ‖ C2.
type Ciphertext struct {
	C1 ec.Point // [k]G
	C3 []byte   // Hash(x2 ‖ M ‖ y2)
	C2 []byte   // M ⊕ t
}

func minCiphertextLen(d *Domain) int { return ec.PointSize + d.hashSize + 1 }

// ParseCiphertext splits C1 ‖ C3 ‖ C2. C1 carries no format tag.
func ParseCiphertext(d *Domain, b []byte) (*Ciphertext, error) {
	if len(b) < minCiphertextLen(d) {
		return nil, NewError(ErrInvalidLength, "sm2: ciphertext too short")
	}
	c1, _ := ec.ParsePoint(b[:ec.PointSize])
	rest := b[ec.PointSize:]
	return &Ciphertext{
		C1: c1,
		C3: append([]byte(nil), rest[:d.hashSize]...),
		C2: append([]byte(nil), rest[d.hashSize:]...),
	}, nil
}

// ParseCiphertextC1C2C3 splits the older C1 ‖ C2 ‖ C3 layout.
func ParseCiphertextC1C2C3(d *Domain, b []byte) (*Ciphertext, error) {
	if len(b) < minCiphertextLen(d) {
		return nil, NewError(ErrInvalidLength, "sm2: ciphertext too short")
	}
	c1, _ := ec.ParsePoint(b[:ec.PointSize])
	split := len(b) - d.hashSize
	return &Ciphertext{
		C1: c1,
		C2: append([]byte(nil), b[ec.PointSize:split]...),
		C3: append([]byte(nil), b[split:]...),
	}, nil
}

// Bytes encodes C1 ‖ C3 ‖ C2.
func (c *Ciphertext) Bytes() []byte {
	out := make([]byte, 0, ec.PointSize+len(c.C3)+len(c.C2))
	out = append(out, c.C1.Bytes()...)
	out = append(out, c.C3...)
	return append(out, c.C2...)
}

// BytesC1C2C3 encodes the older C1 ‖ C2 ‖ C3 layout.
func (c *Ciphertext) BytesC1C2C3() []byte {
	out := make([]byte, 0, ec.PointSize+len(c.C3)+len(c.C2))
	out = append(out, c.C1.Bytes()...)
	out = append(out, c.C2...)
	return append(out, c.C3...)
}
