package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for book documents: full-text
// on title and author with English stemming, exact keyword on the ID.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleMapping := bleve.NewTextFieldMapping()
	titleMapping.Analyzer = en.AnalyzerName
	titleMapping.Store = true
	titleMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("title", titleMapping)

	authorMapping := bleve.NewTextFieldMapping()
	authorMapping.Analyzer = en.AnalyzerName
	authorMapping.Store = true
	authorMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("author", authorMapping)

	idMapping := bleve.NewTextFieldMapping()
	idMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
