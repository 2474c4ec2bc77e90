package answer

import (
	"fmt"
	"strings"

	"github.com/stardustx8/legalchat/internal/model"
)

const chunkSeparator = "\n\n---\n\n"

// truncationNotice is appended when the context had to be cut at a chunk
// boundary to stay inside the generator's budget.
const truncationNotice = "\n\n[NOTE: additional source passages were omitted to fit the context limit.]"

// buildContext concatenates retrieved chunks into the prompt context, each
// prefixed with a synthetic source label carrying its jurisdiction. The
// result is capped at maxChars by dropping whole chunks from the tail, never
// splitting one, and flagging the cut with a notice.
func buildContext(chunks []model.ScoredChunk, maxChars int) (string, bool) {
	var b strings.Builder
	truncated := false
	for i, c := range chunks {
		passage := fmt.Sprintf("SOURCE %d (%s):\n%s", i+1, c.ISOCode, c.Content)
		added := len(passage)
		if i > 0 {
			added += len(chunkSeparator)
		}
		if maxChars > 0 && b.Len()+added > maxChars {
			truncated = true
			break
		}
		if i > 0 {
			b.WriteString(chunkSeparator)
		}
		b.WriteString(passage)
	}
	if truncated {
		b.WriteString(truncationNotice)
	}
	return b.String(), truncated
}
