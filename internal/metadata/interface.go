package metadata

import (
	"bytes"
	"crypto/sha256"

	"github.com/dmagro/sol-explorer/internal/decode"
	"github.com/dmagro/sol-explorer/internal/extension"
)

// TokenMetadataDiscriminator tags the TokenMetadata entry in an account of a
// program implementing the token metadata interface.
var TokenMetadataDiscriminator = discriminator("spl_token_metadata_interface:token_metadata")

func discriminator(input string) []byte {
	hash := sha256.Sum256([]byte(input))
	var out [8]byte
	copy(out[:], hash[:8])
	return out[:]
}

// interface entry header: discriminator(8) | length u32
const interfaceHeaderLen = 12

// decodeInterfaceTLV reads TokenMetadata from the TLV entries a metadata
// interface program stores. The tagged entry wins; otherwise the first entry
// whose value decodes is used. Trailing bytes too short for a header, or an
// all-zero discriminator, end the walk.
func decodeInterfaceTLV(data []byte) (*extension.TokenMetadata, error) {
	r := decode.NewReader(data)
	var fallback *extension.TokenMetadata
	for r.Remaining() >= interfaceHeaderLen {
		disc, err := r.Field("tlv discriminator").Bytes(8)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(disc, make([]byte, 8)) {
			break
		}
		n, err := r.Field("tlv length").U32()
		if err != nil {
			return nil, err
		}
		if int64(n) > int64(r.Remaining()) {
			return nil, decode.Errorf(decode.MalformedTlv, "entry %x: length %d exceeds remaining %d", disc, n, r.Remaining())
		}
		value, err := r.Bytes(int(n))
		if err != nil {
			return nil, err
		}

		tm, err := extension.DecodeTokenMetadata(value)
		if bytes.Equal(disc, TokenMetadataDiscriminator) {
			return tm, err
		}
		if err == nil && fallback == nil {
			fallback = tm
		}
	}
	if fallback == nil {
		return nil, decode.Errorf(decode.MalformedTlv, "no token metadata entry")
	}
	return fallback, nil
}
