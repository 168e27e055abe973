package sexy

import "fmt"

// Match reports the first difference between pattern and node. The symbol
// _ in pattern matches any datum, and a trailing ... matches any remaining
// list items.
func Match(pattern, node *Node) error {
	return match(pattern, node, "root")
}

func match(pattern, node *Node, path string) error {
	if pattern.IsSymbol("_") {
		return nil
	}
	if pattern.Type != node.Type {
		return fmt.Errorf("at %s: expected %s, got %s", path, pattern, node)
	}
	if pattern.Type != NodeList {
		if pattern.Text != node.Text {
			return fmt.Errorf("at %s: expected %s, got %s", path, pattern, node)
		}
		return nil
	}

	items := pattern.Items
	rest := len(items) > 0 && items[len(items)-1].IsSymbol("...")
	if rest {
		items = items[:len(items)-1]
	}
	if len(node.Items) < len(items) || (!rest && len(node.Items) != len(items)) {
		return fmt.Errorf("at %s: expected %d items, got %d in %s", path, len(items), len(node.Items), node)
	}

	childPath := path
	if head := node.Head(); head != "" {
		childPath = path + "." + head
	}
	for i, item := range items {
		if err := match(item, node.Items[i], fmt.Sprintf("%s[%d]", childPath, i)); err != nil {
			return err
		}
	}
	return nil
}
