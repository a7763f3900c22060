package obj

import (
	"errors"

	"github.com/ppcsplit/ppcsplit/pkg/utils"
)

// Error taxonomy classes. Every diagnostic raised anywhere in pkg/obj,
// pkg/obj/splitter, pkg/config, or pkg/asm wraps one of these sentinels so
// callers can errors.Is against a whole class regardless of which pass
// produced it.
var (
	ErrConfig      = errors.New("configuration error")
	ErrConsistency = errors.New("consistency error")
	ErrStructural  = errors.New("structural error")
	ErrTopology    = errors.New("topology error")
	ErrAlignment   = errors.New("alignment error")
	ErrEmission    = errors.New("emission error")
)

// WrapError wraps a taxonomy sentinel with a formatted detail message,
// built directly on pkg/utils.MakeError.
func WrapError(class error, detail string, args ...any) error {
	return utils.MakeError(class, detail, args...)
}
