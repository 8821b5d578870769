package event

// Product is a read-only view over one entry of an e-commerce products list.
// Producers send products as loosely-typed objects, so lookups go through
// the same normalized-key resolution as message properties.
type Product struct {
	props map[string]any
}

// NewProduct wraps a raw product object.
func NewProduct(props map[string]any) Product {
	return Product{props: props}
}

// Products returns the typed product list from properties.products. Entries
// that are not objects are skipped individually; one malformed entry never
// fails the whole call.
func (m *Message) Products() []Product {
	raw, ok := m.Property("products")
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	products := make([]Product, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		products = append(products, Product{props: obj})
	}
	return products
}

// Lookup resolves a path against the product fields.
func (p Product) Lookup(path string) (any, bool) {
	return Lookup(p.props, path)
}

// String resolves a path to a string field.
func (p Product) String(path string) (string, bool) {
	return LookupString(p.props, path)
}

// Number resolves a path to a numeric field.
func (p Product) Number(path string) (float64, bool) {
	return LookupNumber(p.props, path)
}

// ID returns the product identifier, preferring sku over the id variants.
// Either an id or a name is required by the collection protocol; absence of
// both simply omits the keys.
func (p Product) ID() (any, bool) {
	for _, path := range []string{"sku", "id", "productId", "product_id"} {
		if v, ok := p.Lookup(path); ok {
			return v, true
		}
	}
	return nil, false
}

// SKU returns the product SKU.
func (p Product) SKU() (any, bool) {
	return p.Lookup("sku")
}

// Name returns the product name.
func (p Product) Name() (any, bool) {
	return p.Lookup("name")
}

// Category returns the product category.
func (p Product) Category() (any, bool) {
	return p.Lookup("category")
}

// Brand returns the product brand.
func (p Product) Brand() (any, bool) {
	return p.Lookup("brand")
}

// Variant returns the product variant.
func (p Product) Variant() (any, bool) {
	return p.Lookup("variant")
}

// Position returns the product position within its list.
func (p Product) Position() (any, bool) {
	return p.Lookup("position")
}

// Price returns the product price.
func (p Product) Price() (float64, bool) {
	if v, ok := p.Lookup("price"); ok {
		return parseMoney(v)
	}
	return 0, false
}

// Quantity returns the product quantity, defaulting to 1 when the producer
// omitted it.
func (p Product) Quantity() float64 {
	if n, ok := p.Number("quantity"); ok {
		return n
	}
	return 1
}
