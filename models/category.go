package models

import "strings"

// Category 交易类别，按 type 区分收入/支出
type Category struct {
	ID   int             `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name string          `json:"name" gorm:"size:50;not null;uniqueIndex"`
	Type TransactionType `json:"type" gorm:"size:20;not null;index"`
}

func (Category) TableName() string {
	return "categories"
}

func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name", "名称不能为空")
	}
	if len(c.Name) > 50 {
		return invalid("name", "名称长度不能超过 50")
	}
	if !c.Type.Valid() {
		return invalid("type", "类别类型必须为 income 或 expense")
	}
	return nil
}
