package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for exercise documents.
//
// Names get English stemming so "squats" finds "Squat". Equipment and muscles are
// keyword fields used as exact filters.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	idFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	equipmentFieldMapping := bleve.NewTextFieldMapping()
	equipmentFieldMapping.Analyzer = keyword.Name
	equipmentFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("equipment", equipmentFieldMapping)

	musclesFieldMapping := bleve.NewTextFieldMapping()
	musclesFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("muscles", musclesFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
