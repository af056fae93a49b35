/*
 * @module service/cleaning/vocabulary
 * @description 已知列名与分类取值映射表
 * @architecture 数据模型层
 * @documentReference ai_docs/customer_cleaning.md
 * @stateFlow 默认映射或从配置文件加载 -> 传入流水线
 * @rules 性别与州为封闭映射，车辆类型为开放映射
 * @dependencies github.com/go-playground/validator/v10 (标签)
 * @refs value_canonicalizer.go, service/config/vocabulary.go
 */

package cleaning

// 已知列名（列名标准化之后）
const (
	ColCustomer               = "customer"
	ColState                  = "state"
	ColGender                 = "gender"
	ColEducation              = "education"
	ColCustomerLifetimeValue  = "customer_lifetime_value"
	ColIncome                 = "income"
	ColMonthlyPremiumAuto     = "monthly_premium_auto"
	ColTotalClaimAmount       = "total_claim_amount"
	ColNumberOfOpenComplaints = "number_of_open_complaints"
	ColPolicyType             = "policy_type"
	ColVehicleClass           = "vehicle_class"
)

// NumericColumns 需要中位数填充并转为整数的列
var NumericColumns = []string{
	ColCustomerLifetimeValue,
	ColIncome,
	ColMonthlyPremiumAuto,
	ColTotalClaimAmount,
}

// CategoricalColumns 需要众数填充的分类列
var CategoricalColumns = []string{
	ColCustomer,
	ColState,
	ColGender,
	ColEducation,
	ColPolicyType,
	ColVehicleClass,
}

// Replacement 子串替换规则
type Replacement struct {
	From string `json:"from" yaml:"from" validate:"required"`
	To   string `json:"to" yaml:"to"`
}

// Vocabulary 分类取值的映射表
//
// Gender 和 State 是封闭映射：不在表中的值变为缺失。
// VehicleClass 是开放替换：不在表中的值原样保留。
// 两者的不对称沿用了历史数据处理的行为，改动前需要和数据使用方确认。
type Vocabulary struct {
	Gender       map[string]string `json:"gender" yaml:"gender" validate:"required,min=1,dive,keys,required,endkeys,required"`
	State        map[string]string `json:"state" yaml:"state" validate:"required,min=1,dive,keys,required,endkeys,required"`
	VehicleClass map[string]string `json:"vehicle_class" yaml:"vehicle_class" validate:"dive,keys,required,endkeys,required"`
	Education    []Replacement     `json:"education" yaml:"education" validate:"dive"`
}

// DefaultVocabulary 客户数据集使用的默认映射
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Gender: map[string]string{
			"F":      "F",
			"M":      "M",
			"Femal":  "F",
			"Male":   "M",
			"female": "F",
		},
		State: map[string]string{
			"Washington": "Washington",
			"Arizona":    "Arizona",
			"Nevada":     "Nevada",
			"California": "California",
			"Oregon":     "Oregon",
			"Cali":       "California",
			"AZ":         "Arizona",
			"WA":         "Washington",
		},
		VehicleClass: map[string]string{
			"Sports Car": "Luxury",
			"Luxury SUV": "Luxury",
			"Luxury Car": "Luxury",
		},
		Education: []Replacement{
			{From: "Bachelors", To: "Bachelor"},
		},
	}
}
