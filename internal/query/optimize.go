package query

// Optimize removes operators that can never match and collapses single-argument
// operators into their argument when both belong to the same family. It repeats
// until nothing changes and returns the possibly new root. SCORE nodes are kept.
func Optimize(root *Node) *Node {
	for {
		changed := false
		if root.Kind != KindScore && len(root.Args) == 1 && root.Args[0].Kind.Family() == FamilyScore {
			root = root.Args[0]
			changed = true
		}
		if cleanup(root) {
			changed = true
		}
		if !changed {
			return root
		}
	}
}

func cleanup(n *Node) bool {
	changed := false
	for i := len(n.Args) - 1; i >= 0; i-- {
		arg := n.Args[i]
		switch {
		case arg.Kind != KindTerm && len(arg.Args) == 0:
			n.RemoveArg(i)
			changed = true
		case arg.Kind != KindScore && len(arg.Args) == 1 && arg.Args[0].Kind.Family() == arg.Kind.Family():
			n.Args[i] = arg.Args[0]
			changed = true
		default:
			if cleanup(arg) {
				changed = true
			}
		}
	}
	return changed
}
