package crypto

type AddressSet map[Address]struct{}

func NewAddressSet(addrs ...Address) AddressSet {
	set := make(AddressSet, len(addrs))
	for _, a := range addrs {
		set.Add(a)
	}
	return set
}

func (set AddressSet) Add(a Address) {
	set[a] = struct{}{}
}

func (set AddressSet) Remove(a Address) {
	delete(set, a)
}

func (set AddressSet) Has(a Address) bool {
	_, ok := set[a]
	return ok
}
