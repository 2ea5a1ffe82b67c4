package preference

import "hanru_board/internal/domain/model"

// Tags marking the two language variants of a bilingual element.
const (
	// KoreanTag marks the Korean variant.
	KoreanTag = "korean-variant"
	// RussianTag marks the Russian variant.
	RussianTag = "russian-variant"

	// ModeAttribute carries the current mode on the surface root.
	ModeAttribute = "data-lang"
)

// Node is one element of a render tree.
type Node interface {
	HasClass(class string) bool
	SetVisibility(v Visibility)
}

// Surface is a render tree the controller enforces visibility on.
// Implementations must be safe for concurrent use.
type Surface interface {
	Nodes() []Node
	SetAttribute(name, value string)
}

// Observable surfaces report structural changes (node insertion).
// Observe returns a function that ends the subscription.
type Observable interface {
	Observe(fn func()) (stop func())
}

// VariantOf reports which language a node is tagged with. Nodes with neither
// tag, or with both, are not bilingual variants and are left alone.
func VariantOf(n Node) (model.Language, bool) {
	ko, ru := n.HasClass(KoreanTag), n.HasClass(RussianTag)
	switch {
	case ko && !ru:
		return model.LangKo, true
	case ru && !ko:
		return model.LangRu, true
	}
	return "", false
}
