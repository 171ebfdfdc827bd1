package enums

// ProductCategory groups raw materials in the catalog.
type ProductCategory string

const (
	ProductCategoryVegetables    ProductCategory = "vegetables"
	ProductCategoryFruits        ProductCategory = "fruits"
	ProductCategoryGrainsCereals ProductCategory = "grains_cereals"
	ProductCategoryDairy         ProductCategory = "dairy"
	ProductCategoryMeatPoultry   ProductCategory = "meat_poultry"
	ProductCategorySeafood       ProductCategory = "seafood"
	ProductCategorySpicesHerbs   ProductCategory = "spices_herbs"
	ProductCategoryPackagedGoods ProductCategory = "packaged_goods"
	ProductCategoryOilsFats      ProductCategory = "oils_fats"
	ProductCategoryBeverages     ProductCategory = "beverages"
	ProductCategorySnacks        ProductCategory = "snacks"
	ProductCategoryOther         ProductCategory = "other"
)

var validProductCategories = []ProductCategory{
	ProductCategoryVegetables,
	ProductCategoryFruits,
	ProductCategoryGrainsCereals,
	ProductCategoryDairy,
	ProductCategoryMeatPoultry,
	ProductCategorySeafood,
	ProductCategorySpicesHerbs,
	ProductCategoryPackagedGoods,
	ProductCategoryOilsFats,
	ProductCategoryBeverages,
	ProductCategorySnacks,
	ProductCategoryOther,
}

func (c ProductCategory) String() string { return string(c) }

func (c ProductCategory) IsValid() bool { return contains(validProductCategories, c) }

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	return parse(validProductCategories, value, "product category")
}

// PriceUnit is the unit a product's price and quantities are expressed in.
type PriceUnit string

const (
	PriceUnitKg      PriceUnit = "kg"
	PriceUnitGrams   PriceUnit = "grams"
	PriceUnitLiters  PriceUnit = "liters"
	PriceUnitPieces  PriceUnit = "pieces"
	PriceUnitPackets PriceUnit = "packets"
	PriceUnitBoxes   PriceUnit = "boxes"
)

var validPriceUnits = []PriceUnit{
	PriceUnitKg,
	PriceUnitGrams,
	PriceUnitLiters,
	PriceUnitPieces,
	PriceUnitPackets,
	PriceUnitBoxes,
}

func (u PriceUnit) String() string { return string(u) }

func (u PriceUnit) IsValid() bool { return contains(validPriceUnits, u) }

// ParsePriceUnit converts raw input into a PriceUnit.
func ParsePriceUnit(value string) (PriceUnit, error) {
	return parse(validPriceUnits, value, "price unit")
}
