package node

type DispatcherEnum int

const (
	DispatcherUnknown DispatcherEnum = iota
	DispatcherScalar
	DispatcherEmbedded
	DispatcherEntity
	DispatcherCollection
	DispatcherMap

	// DispatcherTotal is a constant that represents the total number of kinds defined
	DispatcherTotal = int(iota)
)

var dispatcherNames = [...]string{
	DispatcherUnknown:    "unknown",
	DispatcherScalar:     "scalar",
	DispatcherEmbedded:   "embedded",
	DispatcherEntity:     "entity",
	DispatcherCollection: "collection",
	DispatcherMap:        "map",
}

func (d DispatcherEnum) String() string {
	if d < 0 || int(d) >= DispatcherTotal {
		return dispatcherNames[DispatcherUnknown]
	}

	return dispatcherNames[d]
}
