// Package seed populates the reference tables on startup. Seeding is
// idempotent by code, so restarts never duplicate rows.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	subsidydomain "github.com/subsidytracker/subsidytracker/internal/subsidy/domain"
	"gorm.io/gorm"
)

type regionSeed struct {
	name string
	code string
}

// Top-level administrative divisions plus the nationwide sentinel.
var regions = []regionSeed{
	{"전국", subsidydomain.RegionCodeAll},
	{"서울특별시", "SEOUL"},
	{"부산광역시", "BUSAN"},
	{"대구광역시", "DAEGU"},
	{"인천광역시", "INCHEON"},
	{"광주광역시", "GWANGJU"},
	{"대전광역시", "DAEJEON"},
	{"울산광역시", "ULSAN"},
	{"세종특별자치시", "SEJONG"},
	{"경기도", "GYEONGGI"},
	{"강원특별자치도", "GANGWON"},
	{"충청북도", "CHUNGBUK"},
	{"충청남도", "CHUNGNAM"},
	{"전북특별자치도", "JEONBUK"},
	{"전라남도", "JEONNAM"},
	{"경상북도", "GYEONGBUK"},
	{"경상남도", "GYEONGNAM"},
	{"제주특별자치도", "JEJU"},
}

type categorySeed struct {
	name        string
	code        string
	description string
}

var categories = []categorySeed{
	{"생활안정", "LIVING", "생활안정 지원금"},
	{"주거·자립", "HOUSING", "주거 및 자립 지원"},
	{"보육·교육", "EDUCATION", "보육 및 교육 지원"},
	{"고용·창업", "EMPLOYMENT", "고용 및 창업 지원"},
	{"보건·의료", "HEALTH", "보건 및 의료 지원"},
	{"행정·안전", "ADMIN", "행정 및 안전 지원"},
	{"문화·환경", "CULTURE", "문화 및 환경 지원"},
	{"농림·축산", "AGRICULTURE", "농림 및 축산 지원"},
	{"기타", subsidydomain.CategoryCodeEtc, "기타 지원"},
	{"청년", "YOUTH", "청년 정책 및 지원"},
}

type targetGroupSeed struct {
	name string
	code string
}

var targetGroups = []targetGroupSeed{
	{"청년", "YOUTH"},
	{"중장년", "MIDDLE"},
	{"노인", "SENIOR"},
	{"장애인", "DISABLED"},
	{"저소득층", "LOWINCOME"},
	{"다문화가정", "MULTICULTURAL"},
	{"한부모가정", "SINGLEPARENT"},
	{"임산부", "PREGNANT"},
	{"영유아", "INFANT"},
	{"전체", "ALL"},
}

// EnsureReferenceData seeds regions, categories and target groups.
func EnsureReferenceData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range regions {
			if err := ensureRegion(tx, node, r); err != nil {
				return err
			}
		}
		for _, c := range categories {
			if err := ensureCategory(tx, node, c); err != nil {
				return err
			}
		}
		for _, g := range targetGroups {
			if err := ensureTargetGroup(tx, node, g); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureRegion(tx *gorm.DB, node *snowflake.Node, r regionSeed) error {
	var existing subsidydomain.Region
	err := tx.First(&existing, "code = ?", r.code).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return tx.Create(&subsidydomain.Region{
		ID:   node.Generate(),
		Name: r.name,
		Code: r.code,
	}).Error
}

func ensureCategory(tx *gorm.DB, node *snowflake.Node, c categorySeed) error {
	var existing subsidydomain.Category
	err := tx.First(&existing, "code = ?", c.code).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	description := c.description
	return tx.Create(&subsidydomain.Category{
		ID:          node.Generate(),
		Name:        c.name,
		Code:        c.code,
		Description: &description,
	}).Error
}

func ensureTargetGroup(tx *gorm.DB, node *snowflake.Node, g targetGroupSeed) error {
	var existing subsidydomain.TargetGroup
	err := tx.First(&existing, "code = ?", g.code).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return tx.Create(&subsidydomain.TargetGroup{
		ID:   node.Generate(),
		Name: g.name,
		Code: g.code,
	}).Error
}
