package models

import "math"

// UnboundedBudget 没有任何预算信号时的上限
const UnboundedBudget = math.MaxFloat64

// Budget 预算区间，构造时保证 Min <= Max
type Budget struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// NewBudget 构造预算区间：负数归零、NaN按缺失处理、上下限颠倒时交换
func NewBudget(minPrice, maxPrice float64) Budget {
	if math.IsNaN(minPrice) || minPrice < 0 {
		minPrice = 0
	}
	if math.IsNaN(maxPrice) || maxPrice <= 0 || math.IsInf(maxPrice, 1) {
		maxPrice = UnboundedBudget
	}
	if minPrice > maxPrice {
		minPrice, maxPrice = maxPrice, minPrice
	}
	return Budget{Min: minPrice, Max: maxPrice}
}

func FullRangeBudget() Budget {
	return Budget{Min: 0, Max: UnboundedBudget}
}

// Contains 价格是否落在区间内（含边界）
func (b Budget) Contains(price float64) bool {
	return price >= b.Min && price <= b.Max
}

func (b Budget) IsUnbounded() bool {
	return b.Min == 0 && b.Max == UnboundedBudget
}

// Priorities 各维度的重要程度（1-10），仅作展示用途，不参与打分
type Priorities struct {
	Price    int `json:"price"`
	Location int `json:"location"`
	Size     int `json:"size"`
	Features int `json:"features"`
}

const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5
)

func DefaultPriorities() Priorities {
	return Priorities{
		Price:    DefaultPriority,
		Location: DefaultPriority,
		Size:     DefaultPriority,
		Features: DefaultPriority,
	}
}

// Clamp 将每个权重限制在 1-10
func (p Priorities) Clamp() Priorities {
	c := func(v int) int {
		if v < MinPriority {
			return MinPriority
		}
		if v > MaxPriority {
			return MaxPriority
		}
		return v
	}
	return Priorities{Price: c(p.Price), Location: c(p.Location), Size: c(p.Size), Features: c(p.Features)}
}

// UserPreferences 从用户行为推导出的偏好快照，按需重新计算
type UserPreferences struct {
	Budget        Budget     `json:"budget"`
	PropertyTypes []string   `json:"property_types"`
	Locations     []string   `json:"locations"`
	Features      []string   `json:"features"`
	Priorities    Priorities `json:"priorities"`
}

// EmptyPreferences 没有任何行为数据时的偏好：全区间预算、空集合
func EmptyPreferences() UserPreferences {
	return UserPreferences{
		Budget:        FullRangeBudget(),
		PropertyTypes: []string{},
		Locations:     []string{},
		Features:      []string{},
		Priorities:    DefaultPriorities(),
	}
}

func (p UserPreferences) Clone() UserPreferences {
	c := p
	c.PropertyTypes = append([]string{}, p.PropertyTypes...)
	c.Locations = append([]string{}, p.Locations...)
	c.Features = append([]string{}, p.Features...)
	return c
}
