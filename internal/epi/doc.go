// Package epi implements the Export Potential Index modeling pipeline.
//
// The pipeline turns raw bilateral trade records into a composite score per
// (product, destination market) pair blending three factors: the home
// region's projected capacity to supply the product, the destination
// market's projected demand for it, and the structural ease of trading
// between the two. Ranked by unrealized potential, the output surfaces
// under-exploited export opportunities.
//
// # Stages
//
// Stages run strictly in dependency order; each consumes only the fully
// materialized outputs of earlier stages plus reference data:
//
//  1. harmonize.go: raw extracts to the canonical trade table
//  2. weighting.go: recency-weighted historical levels per series
//  3. growth.go: cumulative population and GDP growth indices
//  4. supply.go: the region's projected share of global exports per product
//  5. demand.go: projected import value per market and product
//  6. ease.go: bilateral accessibility proxy per market
//  7. compose.go: raw score composition and group-share normalization
//  8. categorize.go: ordinal tier assignment per configured policy
//  9. aggregate.go: product-level and market-level roll-ups
//
// pipeline.go chains the stages; audit.go counts the anomalies a run
// absorbs (dropped mappings, short series, zero divisions) so data
// completeness stays auditable without aborting the run.
//
// All model parameters arrive through Params and CategorizerParams; the
// package holds no mutable configuration state, which keeps runs
// reproducible and stages testable in isolation.
package epi
