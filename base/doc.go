/*

Package base provides base functions for gorse-bpr.

The base functions include:

* Random Generator

* Numerically Stable Sigmoid

*/
package base
