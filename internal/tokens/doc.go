// Package tokens implementa el ciclo de vida de credenciales OAuth de las
// plataformas sociales: evaluación de expiración, refresco contra cada
// proveedor y orquestación multi-plataforma con resultados uniformes.
//
// La regla central: el fallo de una plataforma jamás bloquea a otra, y
// cada fallo se clasifica como transitorio (reintentable) o como
// reconexión (el usuario debe reautorizar).
package tokens
