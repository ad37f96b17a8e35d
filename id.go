package itemcast

import "github.com/xraph/itemcast/id"

// ID is the primary identifier type for all itemcast entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
