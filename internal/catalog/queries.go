package catalog

// Per-operation GraphQL documents and their typed responses. The
// connection shapes (edges/node) mirror the Storefront API schema
// exactly so an unexpected payload fails decoding instead of being
// silently coerced.

const productFields = `
      id
      handle
      title
      description
      descriptionHtml
      productType
      tags
      images(first: 10) {
        edges {
          node {
            url
            altText
          }
        }
      }
      variants(first: 100) {
        edges {
          node {
            id
            title
            availableForSale
            price {
              amount
              currencyCode
            }
            compareAtPrice {
              amount
              currencyCode
            }
            selectedOptions {
              name
              value
            }
          }
        }
      }`

const queryListProducts = `query ListProducts($first: Int!) {
  products(first: $first) {
    edges {
      node {` + productFields + `
      }
    }
  }
}`

const querySearchProducts = `query SearchProducts($query: String!, $first: Int!) {
  products(first: $first, query: $query) {
    edges {
      node {` + productFields + `
      }
    }
  }
}`

const queryProductByHandle = `query ProductByHandle($handle: String!) {
  product(handle: $handle) {` + productFields + `
  }
}`

const queryProductByID = `query ProductByID($id: ID!) {
  product(id: $id) {` + productFields + `
  }
}`

type gqlMoney struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type gqlSelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type gqlVariant struct {
	ID               string              `json:"id"`
	Title            string              `json:"title"`
	AvailableForSale bool                `json:"availableForSale"`
	Price            gqlMoney            `json:"price"`
	CompareAtPrice   *gqlMoney           `json:"compareAtPrice"`
	SelectedOptions  []gqlSelectedOption `json:"selectedOptions"`
}

type gqlImage struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

type gqlProduct struct {
	ID              string `json:"id"`
	Handle          string `json:"handle"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"descriptionHtml"`
	ProductType     string `json:"productType"`
	Tags            []string `json:"tags"`
	Images          struct {
		Edges []struct {
			Node gqlImage `json:"node"`
		} `json:"edges"`
	} `json:"images"`
	Variants struct {
		Edges []struct {
			Node gqlVariant `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

type listProductsResponse struct {
	Products struct {
		Edges []struct {
			Node gqlProduct `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

type productResponse struct {
	Product *gqlProduct `json:"product"`
}
