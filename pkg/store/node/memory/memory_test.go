package memory

import (
	"testing"

	"github.com/marmos91/stonify/pkg/store/node"
	nodetesting "github.com/marmos91/stonify/pkg/store/node/testing"
)

func TestMemoryNodeStore(t *testing.T) {
	suite := &nodetesting.StoreTestSuite{
		NewStore: func() node.Store {
			return NewMemoryNodeStore()
		},
	}
	suite.Run(t)
}
