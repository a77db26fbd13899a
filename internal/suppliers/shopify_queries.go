package suppliers

const shopifyProductsQuery = `
query products($first: Int!, $after: String) {
  products(first: $first, after: $after) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        title
        descriptionHtml
        productType
        vendor
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
              sku
              barcode
              title
              price
              compareAtPrice
              inventoryQuantity
              inventoryItem {
                tracked
                unitCost {
                  amount
                }
              }
            }
          }
        }
      }
    }
  }
}`

const shopifyProductQuery = `
query product($id: ID!) {
  product(id: $id) {
    id
    title
    descriptionHtml
    productType
    vendor
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
          sku
          barcode
          title
          price
          compareAtPrice
          inventoryQuantity
          inventoryItem {
            tracked
            unitCost {
              amount
            }
          }
        }
      }
    }
  }
}`

const shopifyDraftOrderCreateMutation = `
mutation draftOrderCreate($input: DraftOrderInput!) {
  draftOrderCreate(input: $input) {
    draftOrder {
      id
      status
    }
    userErrors {
      field
      message
    }
  }
}`

const shopifyOrderQuery = `
query order($id: ID!) {
  order(id: $id) {
    id
    displayFulfillmentStatus
    createdAt
    totalPriceSet {
      shopMoney {
        amount
        currencyCode
      }
    }
    lineItems(first: 50) {
      edges {
        node {
          sku
          quantity
          originalUnitPriceSet {
            shopMoney {
              amount
            }
          }
          variant {
            id
          }
          product {
            id
          }
        }
      }
    }
  }
}`

const shopifyTrackingQuery = `
query orderTracking($id: ID!) {
  order(id: $id) {
    id
    fulfillments {
      status
      createdAt
      trackingInfo {
        company
        number
      }
      events(first: 20) {
        edges {
          node {
            happenedAt
            status
            message
          }
        }
      }
    }
  }
}`
