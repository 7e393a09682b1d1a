package learner

// ConfigPair is one recorded SetParam call.
type ConfigPair struct {
	Key   string
	Value string
}

// ConfigStore records configuration calls in the order they arrived so
// that lazily constructed components can be brought up to date.
type ConfigStore struct {
	pairs []ConfigPair
}

// Append records a pair. Repeated keys are kept; the last one wins on replay.
func (c *ConfigStore) Append(key, value string) {
	c.pairs = append(c.pairs, ConfigPair{Key: key, Value: value})
}

// Len returns the number of recorded pairs.
func (c *ConfigStore) Len() int { return len(c.pairs) }

// Pairs returns a copy of the recorded pairs.
func (c *ConfigStore) Pairs() []ConfigPair {
	out := make([]ConfigPair, len(c.pairs))
	copy(out, c.pairs)
	return out
}

// Replay calls apply for every pair in recording order.
func (c *ConfigStore) Replay(apply func(key, value string)) {
	for _, p := range c.pairs {
		apply(p.Key, p.Value)
	}
}
