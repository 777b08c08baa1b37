package cart

// Storefront Cart API operations: cartCreate, cart(id), cartLinesAdd,
// cartLinesUpdate, cartLinesRemove. Every mutation returns the full
// cart selection so the local view is always re-derived from the
// platform's current state.

const cartFields = `
      id
      checkoutUrl
      totalQuantity
      cost {
        totalAmount {
          amount
          currencyCode
        }
        subtotalAmount {
          amount
          currencyCode
        }
      }
      lines(first: 250) {
        edges {
          node {
            id
            quantity
            merchandise {
              ... on ProductVariant {
                id
                title
                product {
                  id
                  handle
                  title
                }
                selectedOptions {
                  name
                  value
                }
              }
            }
            cost {
              totalAmount {
                amount
                currencyCode
              }
            }
          }
        }
      }`

const mutationCartCreate = `mutation CartCreate {
  cartCreate {
    cart {
      id
    }
    userErrors {
      field
      message
    }
  }
}`

const queryCart = `query GetCart($id: ID!) {
  cart(id: $id) {` + cartFields + `
  }
}`

const mutationLinesAdd = `mutation CartLinesAdd($cartId: ID!, $lines: [CartLineInput!]!) {
  cartLinesAdd(cartId: $cartId, lines: $lines) {
    cart {` + cartFields + `
    }
    userErrors {
      field
      message
    }
  }
}`

const mutationLinesUpdate = `mutation CartLinesUpdate($cartId: ID!, $lines: [CartLineUpdateInput!]!) {
  cartLinesUpdate(cartId: $cartId, lines: $lines) {
    cart {` + cartFields + `
    }
    userErrors {
      field
      message
    }
  }
}`

const mutationLinesRemove = `mutation CartLinesRemove($cartId: ID!, $lineIds: [ID!]!) {
  cartLinesRemove(cartId: $cartId, lineIds: $lineIds) {
    cart {` + cartFields + `
    }
    userErrors {
      field
      message
    }
  }
}`

type gqlMoney struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type gqlCartLine struct {
	ID          string `json:"id"`
	Quantity    int    `json:"quantity"`
	Merchandise struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Product struct {
			ID     string `json:"id"`
			Handle string `json:"handle"`
			Title  string `json:"title"`
		} `json:"product"`
		SelectedOptions []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"selectedOptions"`
	} `json:"merchandise"`
	Cost struct {
		TotalAmount gqlMoney `json:"totalAmount"`
	} `json:"cost"`
}

type gqlCart struct {
	ID            string `json:"id"`
	CheckoutURL   string `json:"checkoutUrl"`
	TotalQuantity int    `json:"totalQuantity"`
	Cost          struct {
		TotalAmount    gqlMoney `json:"totalAmount"`
		SubtotalAmount gqlMoney `json:"subtotalAmount"`
	} `json:"cost"`
	Lines struct {
		Edges []struct {
			Node gqlCartLine `json:"node"`
		} `json:"edges"`
	} `json:"lines"`
}

type gqlUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type cartCreateResponse struct {
	CartCreate struct {
		Cart *struct {
			ID string `json:"id"`
		} `json:"cart"`
		UserErrors []gqlUserError `json:"userErrors"`
	} `json:"cartCreate"`
}

type cartGetResponse struct {
	Cart *gqlCart `json:"cart"`
}

type linesAddResponse struct {
	CartLinesAdd struct {
		Cart       *gqlCart       `json:"cart"`
		UserErrors []gqlUserError `json:"userErrors"`
	} `json:"cartLinesAdd"`
}

type linesUpdateResponse struct {
	CartLinesUpdate struct {
		Cart       *gqlCart       `json:"cart"`
		UserErrors []gqlUserError `json:"userErrors"`
	} `json:"cartLinesUpdate"`
}

type linesRemoveResponse struct {
	CartLinesRemove struct {
		Cart       *gqlCart       `json:"cart"`
		UserErrors []gqlUserError `json:"userErrors"`
	} `json:"cartLinesRemove"`
}
