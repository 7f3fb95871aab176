package service

import (
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/shopspring/decimal"
)

type seedItem struct {
	id, name, description, category, brand string
	price, original                        int64
	condition                              entity.Condition
	stock                                  int
	image                                  string
}

var starterCatalog = []seedItem{
	{"p-iphone-13", "iPhone 13 128GB", "Battery health 89%, no scratches on screen.", "Phones", "Apple", 28500, 42990, entity.ConditionExcellent, 3, "https://images.unsplash.com/photo-1632661674596-df8be070a5c5"},
	{"p-galaxy-s21", "Samsung Galaxy S21", "Minor scuffs on frame, original charger included.", "Phones", "Samsung", 17999, 45990, entity.ConditionGood, 2, "https://images.unsplash.com/photo-1610945265064-0e34e5519bbf"},
	{"p-macbook-air-m1", "MacBook Air M1 8GB/256GB", "Cycle count 120, with box.", "Laptops", "Apple", 39999, 57990, entity.ConditionLikeNew, 1, "https://images.unsplash.com/photo-1611186871348-b1ce696e52c9"},
	{"p-thinkpad-t480", "Lenovo ThinkPad T480", "i5-8350U, 16GB RAM, new battery.", "Laptops", "Lenovo", 14500, 0, entity.ConditionGood, 4, "https://images.unsplash.com/photo-1588872657578-7efd1f1555ed"},
	{"p-ipad-9", "iPad 9th Gen 64GB WiFi", "Light use, comes with case.", "Tablets", "Apple", 13500, 19990, entity.ConditionExcellent, 2, "https://images.unsplash.com/photo-1544244015-0df4b3ffc6b0"},
	{"p-airpods-pro", "AirPods Pro (1st gen)", "Replacement tips included.", "Audio", "Apple", 4200, 14490, entity.ConditionFair, 5, "https://images.unsplash.com/photo-1600294037681-c80b4cb5b434"},
	{"p-switch-oled", "Nintendo Switch OLED", "Complete set with dock and joy-cons.", "Gaming", "Nintendo", 15800, 19995, entity.ConditionLikeNew, 2, "https://images.unsplash.com/photo-1578303512597-81e6cc155b3e"},
	{"p-sony-xm4", "Sony WH-1000XM4", "Headband shows wear, ANC works perfectly.", "Audio", "Sony", 8900, 19999, entity.ConditionGood, 3, "https://images.unsplash.com/photo-1618366712010-f4ae9c647dcb"},
}

func seedProducts(now time.Time) []entity.Product {
	products := make([]entity.Product, 0, len(starterCatalog))
	for _, it := range starterCatalog {
		p := entity.Product{
			ID:          it.id,
			Name:        it.name,
			Description: it.description,
			Price:       decimal.NewFromInt(it.price),
			Category:    it.category,
			Brand:       it.brand,
			Condition:   it.condition,
			Stock:       it.stock,
			Images:      []string{it.image},
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if it.original > 0 {
			orig := decimal.NewFromInt(it.original)
			p.OriginalPrice = &orig
		}
		products = append(products, p)
	}
	return products
}
