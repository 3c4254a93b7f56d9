// Pricelist extracts canonical product and offer fields from supplier
// price-list rows using declarative, per-supplier rule documents.
//
// Each rule document declares target fields (Product.Brand, Product.Size,
// Offer.Price, ...) and an ordered list of candidate rules per field. The
// first rule that matches a row wins; every attempt is kept in an
// evaluation trace that can be printed or persisted for audit.
//
// Usage:
//
//	# Validate rule documents
//	pricelist lint --file rules/perfume.yaml
//
//	# Re-validate on every save
//	pricelist lint --dir rules/ --watch
//
//	# Extract fields from a workbook
//	pricelist extract --rules rules/perfume.yaml --input prices.xlsx --format csv
//
//	# Run rule tests
//	pricelist test --rules rules/perfume.yaml --tests tests/perfume_tests.yaml
//
//	# Inspect persisted traces
//	pricelist audit query --field Product.Brand --outcome error
//
//	# Show version information
//	pricelist version
package main

func main() {
	Execute()
}
