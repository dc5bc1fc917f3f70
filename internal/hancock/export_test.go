// Export internal identifiers for testing
package hancock

// ErrExhausted exports errExhausted for testing
var ErrExhausted = errExhausted

// DecodeTrailer exports decodeTrailer for testing
var DecodeTrailer = decodeTrailer
