package realtor

// searchDocument is the fixed GraphQL query sent on every page fetch. Only
// home_search is requested; geo statistics are not part of this harvest.
const searchDocument = `query ConsumerSearchMainQuery($query: HomeSearchCriteria!, $limit: Int, $offset: Int, $sort_type: SearchSortType)
{
  home_search: home_search(query: $query,
    limit: $limit,
    offset: $offset,
    sort_type: $sort_type,
  ){
    count
    total
    results {
      property_id
      listing_id
      list_price
      list_date
      status
      permalink
      primary_photo (https: true){
        href
      }
      photos(limit: 50, https: true){
        href
      }
      virtual_tours{
        href
        type
      }
      description{
        beds
        baths
        garage
        stories
        type
        lot_sqft
        sqft
        year_built
        text
      }
      location{
        address{
          line
          postal_code
          state_code
          city
          coordinate {
            lat
            lon
          }
        }
        county {
          name
        }
      }
      flags{
        is_coming_soon
        is_pending
        is_foreclosure
        is_contingent
        is_new_construction
        is_new_listing (days: 14)
        is_price_reduced (days: 30)
        is_plan
        is_subdivision
      }
      tags
    }
  }
}`

type searchCriteria struct {
	Status     []string `json:"status"`
	Primary    bool     `json:"primary"`
	PostalCode string   `json:"postal_code"`
}

type searchVariables struct {
	Query    searchCriteria `json:"query"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
	SortType string         `json:"sort_type"`
}

type searchRequest struct {
	Query         string          `json:"query"`
	Variables     searchVariables `json:"variables"`
	OperationName string          `json:"operationName"`
}

func newSearchRequest(postalCode string, offset, limit int) searchRequest {
	return searchRequest{
		Query: searchDocument,
		Variables: searchVariables{
			Query: searchCriteria{
				Status:     []string{"for_sale", "ready_to_build"},
				Primary:    true,
				PostalCode: postalCode,
			},
			Limit:    limit,
			Offset:   offset,
			SortType: "relevant",
		},
		OperationName: "ConsumerSearchMainQuery",
	}
}

type searchResponse struct {
	Data *struct {
		HomeSearch *struct {
			Count   int        `json:"count"`
			Total   int        `json:"total"`
			Results []RawEntry `json:"results"`
		} `json:"home_search"`
	} `json:"data"`
}
