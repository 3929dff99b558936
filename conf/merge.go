package conf

// asTree returns v as a Tree when it is a mapping.
func asTree(v interface{}) (Tree, bool) {
	switch m := v.(type) {
	case Tree:
		return m, true
	case map[interface{}]interface{}:
		return stringKeys(m), true
	}
	return nil, false
}

// Merge applies src over dst and returns dst. Mappings present on both
// sides are merged key by key, recursively; any other value in src
// replaces the one in dst. Keys of dst absent from src are never removed.
func Merge(dst, src Tree) Tree {
	for k, sv := range src {
		srcTree, srcIsTree := asTree(sv)
		dstTree, dstIsTree := asTree(dst[k])
		if srcIsTree && dstIsTree {
			dst[k] = Merge(dstTree, srcTree)
			continue
		}
		dst[k] = sv
	}
	return dst
}

// DeepCopy copies a tree, including nested mappings and sequences.
func DeepCopy(t Tree) Tree {
	res := make(Tree, len(t))
	for k, v := range t {
		res[k] = copyValue(v)
	}
	return res
}

func copyValue(v interface{}) interface{} {
	if m, ok := asTree(v); ok {
		return DeepCopy(m)
	}
	if seq, ok := v.([]interface{}); ok {
		res := make([]interface{}, len(seq))
		for i, item := range seq {
			res[i] = copyValue(item)
		}
		return res
	}
	return v
}
