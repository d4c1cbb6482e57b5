//Package dosePlot renders the dose analysis results as png images
package dosePlot
