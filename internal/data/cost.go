package data

// Cost is a bundled resource price. Debits against a Cost are atomic:
// either every line item is affordable or nothing is deducted.
type Cost struct {
	Gold   int64 `yaml:"gold"`
	Lumber int64 `yaml:"lumber"`
	Food   int64 `yaml:"food"`
	Arcana int64 `yaml:"arcana"`
}

func (c Cost) IsZero() bool {
	return c.Gold == 0 && c.Lumber == 0 && c.Food == 0 && c.Arcana == 0
}
