package asset

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-assets/pkg/scene"
)

// processNode visits node in pre-order: its own meshes in array order, then
// its children in array order. Every mesh reference becomes one Mesh.
func processNode(m *Model, node *scene.Node, sc *scene.Scene, log *zap.Logger) error {
	if m == nil || node == nil || sc == nil {
		return fmt.Errorf("%w: nil model, node or scene", ErrInvalidArgument)
	}

	for _, ref := range node.Meshes {
		if ref < 0 || ref >= len(sc.Meshes) {
			return fmt.Errorf("%w: node %q references mesh %d of %d",
				ErrInvalidArgument, node.Name, ref, len(sc.Meshes))
		}
		mesh, err := assembleMesh(m, sc.Meshes[ref], sc, log)
		if err != nil {
			return fmt.Errorf("node %q mesh %d: %w", node.Name, ref, err)
		}
		m.addMesh(mesh)
	}

	for _, child := range node.Children {
		if err := processNode(m, child, sc, log); err != nil {
			return err
		}
	}
	return nil
}
