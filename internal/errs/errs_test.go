package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypedErrorsSurviveWrapping(t *testing.T) {
	base := &TransportError{SupplierID: 7, Err: fmt.Errorf("connection reset")}
	wrapped := Wrap(base, "send quotation")

	var te *TransportError
	require.ErrorAs(t, wrapped, &te)
	require.Equal(t, 7, te.SupplierID)
	require.Contains(t, wrapped.Error(), "send quotation")
}

func TestHelpers(t *testing.T) {
	require.True(t, IsLocked(Wrap(&LockedError{}, "send")))
	require.False(t, IsLocked(errors.New("other")))

	require.True(t, IsValidation(&ValidationError{Field: "quantity", Detail: "must be positive"}))
	require.False(t, IsValidation(&LockedError{}))

	require.NoError(t, Wrap(nil, "noop"))
}

func TestNetworkErrorUnwraps(t *testing.T) {
	cause := fmt.Errorf("dial tcp: timeout")
	err := &NetworkError{Op: "product/scroll", Err: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "product/scroll")
}
