package boxline

import "github.com/plantfloor/boxline/id"

// ID is the primary identifier type for all Boxline entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
